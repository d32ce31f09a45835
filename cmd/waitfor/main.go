package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sethvargo/go-retry"

	"studentinfo/sis-console/internal/apiclient"
	"studentinfo/sis-console/internal/resources"
)

const pollInterval = 2 * time.Second

func main() {
	_ = godotenv.Load()

	target := flag.String("target", "api", "What to wait for: api or postgres.")
	flag.Parse()

	timeout := 60 * time.Second
	if raw := os.Getenv("WAIT_FOR_TIMEOUT_SEC"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			fmt.Fprintf(os.Stderr, "invalid WAIT_FOR_TIMEOUT_SEC: %q\n", raw)
			os.Exit(2)
		}
		timeout = time.Duration(secs) * time.Second
	}

	var probe func(ctx context.Context) error
	switch *target {
	case "api":
		base := os.Getenv("SIS_API_BASE_URL")
		if base == "" {
			base = "http://localhost:5000/api"
		}
		p, err := apiProbe(base)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(2)
		}
		probe = p
	case "postgres":
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			dsn = os.Getenv("TEST_POSTGRES_DSN")
		}
		if dsn == "" {
			fmt.Fprintln(os.Stderr, "DATABASE_URL or TEST_POSTGRES_DSN is required")
			os.Exit(2)
		}
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open postgres: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()
		probe = db.PingContext
	default:
		fmt.Fprintf(os.Stderr, "unknown target %q, want api or postgres\n", *target)
		os.Exit(2)
	}

	if err := waitFor(context.Background(), probe, pollInterval, timeout); err != nil {
		fmt.Fprintf(os.Stderr, "%s not ready within %s: %v\n", *target, timeout, err)
		os.Exit(1)
	}
	fmt.Printf("%s ready\n", *target)
}

func apiProbe(base string) (func(ctx context.Context) error, error) {
	client, err := apiclient.New(apiclient.Options{BaseURL: base, Timeout: pollInterval})
	if err != nil {
		return nil, err
	}
	api := resources.New(client)
	return func(ctx context.Context) error {
		_, err := api.System.Health(ctx)
		return err
	}, nil
}

// waitFor calls probe every interval until it succeeds or timeout elapses.
func waitFor(ctx context.Context, probe func(ctx context.Context) error, interval, timeout time.Duration) error {
	backoff := retry.WithMaxDuration(timeout, retry.NewConstant(interval))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		if err := probe(attemptCtx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
