package main

import (
	"os"

	"github.com/frenchbreeze/breeze/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
