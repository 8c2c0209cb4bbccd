package main

import (
	"github.com/kbukum/apikit/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		cli.HandleExitError(err)
	}
}
