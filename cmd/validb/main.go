package main

import (
	"os"

	"github.com/sbenjam1n/validb/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
