package command

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/ledgergate-go/internal/cli/output"
	"github.com/yndnr/ledgergate-go/internal/core/domain"
	"github.com/yndnr/ledgergate-go/internal/infra/buildinfo"
)

const runtimeKey = "runtime"

// App creates the CLI application.
func App() *cli.App {
	return newApp(nil)
}

// newApp creates the application. A non-nil rt replaces the runtime built
// from the global flags.
func newApp(rt *Runtime) *cli.App {
	app := &cli.App{
		Name:    "ledgergate-cli",
		Usage:   "Run LedgerGate requests and manage sessions from the command line",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			CallCommand(),
			ParamsCommand(),
			FormCommand(),
			SessionCommand(),
			ConfigCommand(),
			VersionCommand(),
		},
		Metadata: map[string]any{},
		Before: func(c *cli.Context) error {
			if _, ok := c.App.Metadata[runtimeKey].(*Runtime); ok {
				return nil
			}
			c.App.Metadata[runtimeKey] = NewRuntime(ParseGlobalFlags(c), c.App.ErrWriter)
			return nil
		},
		After: func(c *cli.Context) error {
			if rt, ok := c.App.Metadata[runtimeKey].(*Runtime); ok {
				return rt.Close()
			}
			return nil
		},
	}
	if rt != nil {
		app.Metadata[runtimeKey] = rt
	}
	return app
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to the configuration file",
			EnvVars: []string{"LEDGERGATE_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "dsn",
			Usage: "PostgreSQL connection string (overrides database.dsn)",
		},
		&cli.StringFlag{
			Name:  "schema",
			Usage: "Schema holding the stored procedures (overrides database.schema)",
		},
		&cli.StringFlag{
			Name:  "store",
			Usage: "Session store: pg, badger or memory (overrides session.store)",
		},
		&cli.StringFlag{
			Name:    "lang",
			Usage:   "Message language",
			EnvVars: []string{"LANG"},
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Timeout for database work",
			Value: 30 * time.Second,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable debug logging",
		},
	}
}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	ConfigFile string
	DSN        string
	Schema     string
	Store      string
	Lang       string
	Timeout    time.Duration

	Output string
	Wide   bool

	Verbose bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		ConfigFile: c.String("config"),
		DSN:        c.String("dsn"),
		Schema:     c.String("schema"),
		Store:      c.String("store"),
		Lang:       c.String("lang"),
		Timeout:    c.Duration("timeout"),
		Output:     c.String("output"),
		Wide:       c.Bool("wide"),
		Verbose:    c.Bool("verbose"),
	}
}

// Overrides maps the flags that override configuration keys.
func (f *GlobalFlags) Overrides() map[string]any {
	o := map[string]any{}
	if f.DSN != "" {
		o["database.dsn"] = f.DSN
	}
	if f.Schema != "" {
		o["database.schema"] = f.Schema
	}
	if f.Store != "" {
		o["session.store"] = f.Store
	}
	if f.Verbose {
		o["log.level"] = "debug"
	}
	return o
}

// runtimeFrom retrieves the runtime installed by Before.
func runtimeFrom(c *cli.Context) (*Runtime, error) {
	if rt, ok := c.App.Metadata[runtimeKey].(*Runtime); ok {
		return rt, nil
	}
	return nil, errors.New("runtime not initialized")
}

// writeResult formats data with the selected output format.
func writeResult(c *cli.Context, data any) error {
	flags := ParseGlobalFlags(c)
	format, err := output.ParseFormat(flags.Output)
	if err != nil {
		return err
	}
	return output.NewFormatter(format, flags.Wide).Format(writer(c), data)
}

func writer(c *cli.Context) io.Writer {
	if c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

// Message returns what the CLI prints for err: the plain abort message
// when err carries one.
func Message(err error) string {
	var abort *domain.Abort
	if errors.As(err, &abort) {
		return abort.Message
	}
	return err.Error()
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
