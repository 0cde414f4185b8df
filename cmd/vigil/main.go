package main

import (
	"os"

	"github.com/moolen/vigil/cmd/vigil/commands"
)

func main() {
	os.Exit(commands.Execute())
}
