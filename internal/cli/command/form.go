package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
	"github.com/yndnr/ledgergate-go/internal/core/service"
)

// errFormNotOpen makes check and close exit non-zero after printing.
var errFormNotOpen = errors.New("form token is not open")

// FormResult is printed by the form commands.
type FormResult struct {
	SessionID string `json:"session_id" yaml:"session_id"`
	FormID    string `json:"form_id" yaml:"form_id"`
	Valid     bool   `json:"valid" yaml:"valid"`
}

// FormCommand manages form tokens in the session store directly.
func FormCommand() *cli.Command {
	sessionFlag := &cli.StringFlag{
		Name:     "session",
		Aliases:  []string{"s"},
		Usage:    "Session ID the form belongs to",
		Required: true,
	}
	return &cli.Command{
		Name:  "form",
		Usage: "Open, check and close form tokens",
		Subcommands: []*cli.Command{
			{
				Name:   "open",
				Usage:  "Issue a form token",
				Flags:  []cli.Flag{sessionFlag},
				Action: formOpen,
			},
			{
				Name:      "check",
				Usage:     "Check that a form token is open",
				ArgsUsage: "FORM_ID",
				Flags:     []cli.Flag{sessionFlag},
				Action:    formCheck,
			},
			{
				Name:      "close",
				Usage:     "Consume a form token",
				ArgsUsage: "FORM_ID",
				Flags:     []cli.Flag{sessionFlag},
				Action:    formClose,
			},
		},
	}
}

func withStore(c *cli.Context, fn func(ctx context.Context, store service.SessionStore) error) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Context, ParseGlobalFlags(c).Timeout)
	defer cancel()

	store, err := rt.Store(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, store)
}

func formOpen(c *cli.Context) error {
	sessionID := c.String("session")
	return withStore(c, func(ctx context.Context, store service.SessionStore) error {
		tok, err := store.OpenForm(ctx, sessionID)
		if err != nil {
			return err
		}
		return writeResult(c, FormResult{SessionID: sessionID, FormID: tok.String(), Valid: true})
	})
}

func formCheck(c *cli.Context) error {
	return formToken(c, func(ctx context.Context, store service.SessionStore, sessionID string, tok domain.FormToken) (bool, error) {
		return store.CheckForm(ctx, sessionID, tok)
	})
}

func formClose(c *cli.Context) error {
	return formToken(c, func(ctx context.Context, store service.SessionStore, sessionID string, tok domain.FormToken) (bool, error) {
		return store.CloseForm(ctx, sessionID, tok)
	})
}

func formToken(c *cli.Context, op func(context.Context, service.SessionStore, string, domain.FormToken) (bool, error)) error {
	formID := c.Args().First()
	if formID == "" {
		return fmt.Errorf("form ID required")
	}
	sessionID := c.String("session")
	return withStore(c, func(ctx context.Context, store service.SessionStore) error {
		ok, err := op(ctx, store, sessionID, domain.FormToken(formID))
		if err != nil {
			return err
		}
		if err := writeResult(c, FormResult{SessionID: sessionID, FormID: formID, Valid: ok}); err != nil {
			return err
		}
		if !ok {
			return errFormNotOpen
		}
		return nil
	})
}
