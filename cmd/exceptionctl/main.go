package main

import (
	"errors"
	"fmt"
	"os"

	"tiremarket/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.NewRootCmd(version).Execute(); err != nil {
		if !errors.Is(err, cli.ErrConflicts) {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
		os.Exit(1)
	}
}
