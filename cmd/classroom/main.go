package main

import (
	"os"

	"github.com/bnema/classroom/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
