package main

import (
	"os"

	"github.com/jidac/jidac/internal/cliapp"
)

func main() {
	os.Exit(cliapp.Execute())
}
