package main

import (
	"os"

	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/cmd"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(errors.GetExitCode(err))
	}
}
