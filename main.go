package main

import (
	"os"

	"github.com/yomna-shousha/orange-build-sub000/cmd"
	"github.com/yomna-shousha/orange-build-sub000/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(errors.GetExitCode(err))
	}
}
