package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/ledgergate-go/internal/cli/output"
	"github.com/yndnr/ledgergate-go/internal/infra/buildinfo"
	"github.com/yndnr/ledgergate-go/internal/server/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect the configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the merged configuration with secrets masked",
				Action: configShow,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	cfg, err := rt.Config()
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(ParseGlobalFlags(c).Output)
	if err != nil {
		return err
	}
	if format == output.FormatTable {
		format = output.FormatYAML
	}
	return output.NewFormatter(format, false).Format(writer(c), config.Sanitize(cfg))
}

// VersionCommand prints build information.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			return writeResult(c, buildinfo.Get())
		},
	}
}
