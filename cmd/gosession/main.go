// Command gosession manages keys and inspects cookies for goSession deployments.
package main

import (
	"os"

	"github.com/MrEthical07/goSession/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		if msg := err.Error(); msg != "" {
			command.PrintError("%s", msg)
		}
		os.Exit(command.ExitCode(err))
	}
}
