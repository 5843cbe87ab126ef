package main

import (
	"os"

	"github.com/yndnr/ledgergate-go/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		command.PrintError("%s", command.Message(err))
		os.Exit(1)
	}
}
