package config

import (
	"flag"
	"fmt"
)

const HelpMessage = `
Ride dispatch service.

Usage:
  dispatch [--config-path <file>]
  dispatch --help

Options:
  --config-path  Path to a YAML config file. Keys are exported as environment
                 variables (database.host -> DATABASE_HOST); variables already
                 set in the environment take precedence.
  --help         Show this screen.
`

func PrintHelp() {
	if HelpMessage != "" {
		fmt.Printf("%s", HelpMessage)
	} else {
		flag.Usage()
	}
}
