package main

import (
	"os"

	"github.com/loglens/loglens/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
