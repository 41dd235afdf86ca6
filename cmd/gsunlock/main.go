package main

import (
	"os"

	"github.com/bnema/steam-gs-unlock/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
