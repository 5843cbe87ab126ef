package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
	"github.com/yndnr/ledgergate-go/internal/core/service"
)

// SessionResult is printed by the session commands.
type SessionResult struct {
	SessionID string `json:"session_id" yaml:"session_id"`
	Login     string `json:"login" yaml:"login"`
	Company   string `json:"company" yaml:"company"`
	Cookie    string `json:"cookie,omitempty" yaml:"cookie,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty" yaml:"expires_at,omitempty" table:"wide"`
}

func newSessionResult(s *domain.Session, cookie string) SessionResult {
	r := SessionResult{
		SessionID: s.ID,
		Login:     s.Login,
		Company:   s.Company,
		Cookie:    cookie,
	}
	if s.ExpiresAt > 0 {
		r.ExpiresAt = time.UnixMilli(s.ExpiresAt).UTC().Format(time.RFC3339)
	}
	return r
}

// SessionCommand manages sessions in the session store.
func SessionCommand() *cli.Command {
	return &cli.Command{
		Name:    "session",
		Aliases: []string{"sess"},
		Usage:   "Create, check and delete sessions",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a session and print its cookie value",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "login",
						Aliases:  []string{"u"},
						Usage:    "User login",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "company",
						Usage: "Company (database) the session is bound to",
					},
				},
				Action: sessionCreate,
			},
			{
				Name:      "check",
				Usage:     "Check a session cookie value",
				ArgsUsage: "COOKIE",
				Action:    sessionCheck,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a session and its form tokens",
				ArgsUsage: "SESSION_ID",
				Action:    sessionDelete,
			},
		},
	}
}

func sessionCreate(c *cli.Context) error {
	return withStore(c, func(ctx context.Context, store service.SessionStore) error {
		s, token, err := store.Create(ctx, c.String("login"), c.String("company"))
		if err != nil {
			return err
		}
		return writeResult(c, newSessionResult(s, s.Cookie(token).String()))
	})
}

func sessionCheck(c *cli.Context) error {
	cookie, err := domain.ParseSessionCookie(c.Args().First())
	if err != nil {
		return err
	}
	return withStore(c, func(ctx context.Context, store service.SessionStore) error {
		s, err := store.Check(ctx, cookie)
		if err != nil {
			return err
		}
		return writeResult(c, newSessionResult(s, ""))
	})
}

func sessionDelete(c *cli.Context) error {
	sessionID := c.Args().First()
	if sessionID == "" {
		return fmt.Errorf("session ID required")
	}
	return withStore(c, func(ctx context.Context, store service.SessionStore) error {
		if err := store.Delete(ctx, sessionID); err != nil {
			return err
		}
		fmt.Fprintf(writer(c), "session %s deleted\n", sessionID)
		return nil
	})
}
