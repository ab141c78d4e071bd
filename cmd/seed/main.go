// Package main seeds local development data for the profile service.
package main

import (
	"context"
	"flag"
	"os"

	seedcmd "github.com/emberstream/platform/internal/cmd/seed"
	"github.com/emberstream/platform/internal/platform/config"
)

func main() {
	cfg, err := seedcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}

	if err := seedcmd.Run(context.Background(), cfg, os.Stdout); err != nil {
		config.Exitf("seed failed: %v", err)
	}
}
