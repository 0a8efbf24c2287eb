// cmd/redirects/main.go
//
// Operator command for redirect housekeeping.
//
// Usage
// -----
//
//	redirects clean_redirects
//	redirects clear_redirect_cache       [--site-id N]
//	redirects import_builtin_redirects   [--site-id N]
//	redirects activate_builtin_redirects [--site-id N]
//	redirects migrate
//
// Without --site-id the site-scoped commands run for every live site.
//
// Exit status: 0 success, 1 runtime failure, 2 usage error (unknown
// command, bad flag, or a site id that names no live site).
//
// Cache clears and catalog writes are published on the Redis invalidation
// channel when one is configured, so running web instances drop their
// snapshots straight away.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/yanizio/adept-redirects/internal/bootstrap"
	"github.com/yanizio/adept-redirects/internal/broadcast"
	"github.com/yanizio/adept-redirects/internal/catalog"
	"github.com/yanizio/adept-redirects/internal/maintenance"
	"github.com/yanizio/adept-redirects/internal/redirect"
	"github.com/yanizio/adept-redirects/internal/redirect/sqlstore"
	"github.com/yanizio/adept-redirects/internal/site"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

const usageText = `usage: redirects <command> [flags]

commands:
  clean_redirects                          purge stale inactive entries and probe noise
  clear_redirect_cache       [--site-id N] drop cached redirect snapshots
  import_builtin_redirects   [--site-id N] import the built-in catalog (inactive)
  activate_builtin_redirects [--site-id N] activate imported catalog entries
  migrate                                  create or update the redirect_entry table
`

// invocation is a parsed command line.
type invocation struct {
	command string
	siteID  uint64
}

var siteScoped = map[string]bool{
	"clear_redirect_cache":       true,
	"import_builtin_redirects":   true,
	"activate_builtin_redirects": true,
	"clean_redirects":            false,
	"migrate":                    false,
}

func parse(args []string, stderr io.Writer) (invocation, error) {
	if len(args) == 0 {
		return invocation{}, errors.New("missing command")
	}
	inv := invocation{command: args[0]}
	scoped, known := siteScoped[inv.command]
	if !known {
		return invocation{}, fmt.Errorf("unknown command %q", inv.command)
	}

	fs := flag.NewFlagSet(inv.command, flag.ContinueOnError)
	fs.SetOutput(stderr)
	if scoped {
		fs.Uint64Var(&inv.siteID, "site-id", 0, "limit the command to one site")
	}
	err := fs.Parse(args[1:])
	if err != nil {
		return invocation{}, err
	}
	if fs.NArg() > 0 {
		return invocation{}, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	// An omitted flag means every site; an explicit 0 is a mistake.
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "site-id" && inv.siteID == 0 {
			err = errors.New("--site-id must be a positive site id")
		}
	})
	if err != nil {
		return invocation{}, err
	}
	return inv, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	inv, err := parse(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "redirects: %v\n", err)
		}
		fmt.Fprint(stderr, usageText)
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := bootstrap.Open(ctx, "redirects")
	if err != nil {
		fmt.Fprintf(stderr, "redirects: %v\n", err)
		return exitFailure
	}
	defer env.Close()

	repo := sqlstore.New(env.DB)
	if inv.command == "migrate" {
		if err := repo.Migrate(ctx); err != nil {
			fmt.Fprintf(stderr, "redirects: migrate: %v\n", err)
			return exitFailure
		}
		fmt.Fprintln(stdout, "redirect_entry schema up to date")
		return exitOK
	}

	table, err := env.Catalog()
	if err != nil {
		fmt.Fprintf(stderr, "redirects: %v\n", err)
		return exitFailure
	}

	var remote redirect.Invalidator = redirect.Fanout{}
	if env.Redis != nil {
		remote = broadcast.NewPublisher(env.Redis, env.Config.Redis.Channel)
	} else if inv.command == "clear_redirect_cache" {
		zap.L().Warn("no redis configured; web instances keep snapshots until they idle out")
	}
	store := redirect.NewStore(repo, remote)
	sites := site.Repository{DB: env.DB}
	ops := &maintenance.Ops{
		Store:     store,
		Catalog:   catalog.New(table, store, sites),
		Sites:     sites,
		Cache:     remote,
		Retention: env.Config.Redirects.Retention,
	}

	err = dispatch(ctx, ops, inv, stdout)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, maintenance.ErrUnknownSite):
		fmt.Fprintf(stderr, "redirects: %v\n", err)
		return exitUsage
	default:
		fmt.Fprintf(stderr, "redirects: %s: %v\n", inv.command, err)
		return exitFailure
	}
}

func dispatch(ctx context.Context, ops *maintenance.Ops, inv invocation, out io.Writer) error {
	switch inv.command {
	case "clean_redirects":
		rep, err := ops.CleanEntries(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted %d expired inactive entries and %d recorded probes\n",
			rep.Expired, rep.Probes)

	case "clear_redirect_cache":
		if err := ops.ClearCache(ctx, inv.siteID); err != nil {
			return err
		}
		if inv.siteID == 0 {
			fmt.Fprintln(out, "redirect cache cleared for all sites")
		} else {
			fmt.Fprintf(out, "redirect cache cleared for site %d\n", inv.siteID)
		}

	case "import_builtin_redirects":
		res, err := ops.ImportBuiltin(ctx, inv.siteID)
		printImport(out, res)
		if err != nil {
			return err
		}

	case "activate_builtin_redirects":
		res, err := ops.ActivateBuiltin(ctx, inv.siteID)
		printActivate(out, res)
		if err != nil {
			return err
		}
	}
	return nil
}

func printImport(out io.Writer, res []catalog.ImportResult) {
	for _, r := range res {
		fmt.Fprintf(out, "%s (site %d): %d created, %d already present\n",
			r.Site.Name(), r.Site.ID, r.Created, len(r.Skipped))
		for _, e := range r.Errors {
			fmt.Fprintf(out, "  error: %s\n", e)
		}
	}
}

func printActivate(out io.Writer, res []catalog.ActivateResult) {
	for _, r := range res {
		fmt.Fprintf(out, "%s (site %d): %d activated, %d destinations filled\n",
			r.Site.Name(), r.Site.ID, r.Activated, r.Filled)
		for _, s := range r.Skipped {
			fmt.Fprintf(out, "  skipped: %s\n", s)
		}
	}
}
