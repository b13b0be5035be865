package main

import (
	"os"

	"github.com/go-kmon/kmon/cmd/kmon/cmds"
	"github.com/go-kmon/kmon/pkg/logflags"
)

func main() {
	defer logflags.Close()
	if err := cmds.New().Execute(); err != nil {
		os.Exit(1)
	}
}
