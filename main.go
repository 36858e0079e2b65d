package main

import (
	"os"

	"github.com/eforms/eforms/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
