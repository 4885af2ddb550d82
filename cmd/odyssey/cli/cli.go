// Package cli implements the operational subcommands of the odyssey binary.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pos/migrations"
)

// ErrUsage is returned for unknown or malformed subcommands.
var ErrUsage = errors.New("usage: odyssey [serve] | migrate [-seed] | jobs trigger <name> | jobs stats")

// Env carries the settings subcommands need.
type Env struct {
	DSN                  string
	RedisAddr            string
	IdempotencyRetention time.Duration
	Out                  io.Writer
}

// IsServe reports whether args select the HTTP server.
func IsServe(args []string) bool {
	return len(args) == 0 || args[0] == "serve"
}

// Run executes the subcommand in args.
func Run(ctx context.Context, env Env, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	switch args[0] {
	case "migrate":
		return runMigrate(ctx, env, args[1:])
	case "jobs":
		return runJobs(ctx, env, args[1:])
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
}

func runMigrate(ctx context.Context, env Env, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(env.Out)
	seed := fs.Bool("seed", false, "also load the demo catalogue")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pool, err := db.New(ctx, env.DSN, db.Options{})
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := migrations.Apply(ctx, pool, *seed)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Fprintln(env.Out, "schema up to date")
		return nil
	}
	fmt.Fprintf(env.Out, "applied %s\n", strings.Join(applied, ", "))
	return nil
}

func runJobs(ctx context.Context, env Env, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	switch args[0] {
	case "trigger":
		if len(args) != 2 {
			return ErrUsage
		}
		return triggerJob(ctx, env, args[1])
	case "stats":
		return printQueueStats(env)
	default:
		return fmt.Errorf("%w: unknown jobs command %q", ErrUsage, args[0])
	}
}
