package main

import (
	"os"

	"github.com/abhisek/shadowdeck/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
