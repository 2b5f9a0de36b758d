package main

import (
	"os"

	"billbook/internal/cli"
	"billbook/internal/commands"
	"billbook/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentCLI, nil)

	if err := commands.NewRootCommand(cfg, logger).Execute(); err != nil {
		os.Exit(1)
	}
}
