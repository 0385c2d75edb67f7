package main

import (
	"os"

	"github.com/gridsim/chargealloc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
