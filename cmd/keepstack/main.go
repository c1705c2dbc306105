package main

import (
	"os"

	"github.com/keepstack/keepstack/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
