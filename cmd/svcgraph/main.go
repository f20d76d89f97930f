// Package main provides the svcgraph CLI.
package main

import (
	"fmt"
	"os"

	"github.com/timeax/servicegraph/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
