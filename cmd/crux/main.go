package main

import (
	"os"

	"github.com/polaminggkub-debug/crux"
	"github.com/polaminggkub-debug/crux/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:], crux.Filters()))
}
