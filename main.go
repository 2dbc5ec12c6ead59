// Package main is the entry point for the impyla CLI application.
// It runs Impala SQL and Jinja SQL templates through Python helpers.
package main

import (
	"impyla/cli/cmd"
)

// main is the entry point for the impyla CLI application.
// It initializes and executes the command-line interface.
func main() {
	cmd.Execute()
}
