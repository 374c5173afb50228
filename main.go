package main

import (
	"os"

	"github.com/firefly-engineering/firefly-forage/packages/bstest/cmd"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(errors.GetExitCode(err))
	}
}
