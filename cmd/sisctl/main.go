package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"studentinfo/sis-console/internal/app"
	"studentinfo/sis-console/internal/config"
	"studentinfo/sis-console/internal/observability"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	console, err := app.Build(cfg, observability.NewLoggerTo(os.Stderr, cfg.LogLevel))
	if err != nil {
		fmt.Fprintf(os.Stderr, "build console: %v\n", err)
		os.Exit(1)
	}

	cli := commandLine{console: console, out: os.Stdout, in: int(os.Stdin.Fd())}
	runErr := cli.run(os.Args)
	if err := console.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close: %v\n", err)
	}
	if runErr != nil {
		if !errors.Is(runErr, errHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		}
		os.Exit(1)
	}
}
