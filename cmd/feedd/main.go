package main

import (
	"os"

	"github.com/EgorLis/my-feed/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
