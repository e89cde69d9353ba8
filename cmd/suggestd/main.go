package main

import (
	"os"

	"github.com/moscooltech/suggest-ila2/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
