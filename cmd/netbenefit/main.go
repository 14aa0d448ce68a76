package main

import (
	"os"

	"github.com/medication-net-benefit/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
