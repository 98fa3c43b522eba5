package main

import (
	"os"

	"github.com/go-spry/spry/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
