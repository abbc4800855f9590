package main

import (
	"os"

	"github.com/portlogistics/portplan/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
