package main

import (
	"os"

	"github.com/dshills/sqlgate/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
