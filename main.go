package main

import (
	"os"

	"github.com/jobforge/jobforge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
