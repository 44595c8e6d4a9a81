// Command porteiroctl controls the gate of a Porteiro site from the
// command line. It talks to the same Postgres and Valkey instances as the
// server, so changes take effect immediately.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/user"

	"github.com/joho/godotenv"

	"porteiro/internal/cache"
	"porteiro/internal/config"
	"porteiro/internal/database"
	"porteiro/internal/sitemode"
	"porteiro/internal/store"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: porteiroctl [flags] <command>

Gate control for a Porteiro site.

Commands:
  status        show the current gate state
  online        take the site out of maintenance
  maintenance   raise the gate with the maintenance template
  development   raise the gate with the development template

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	// Service-level warnings still surface; everything else stays quiet so
	// the command output is the only thing on stdout.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	flag.Usage = usage
	site := flag.String("site", "", "site to operate on (defaults to SITE_ID)")
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}
	cmd := flag.Arg(0)

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fatal("load configuration: %v", err)
	}
	if *site == "" {
		*site = cfg.SiteID
	}

	db, err := database.Connect(cfg.DSN())
	if err != nil {
		fatal("connect to database: %v", err)
	}
	defer db.Close()

	settingStore := store.NewSettingStore(db)

	// Writing through the Valkey cache invalidates the server's cached
	// settings, so a switch is visible on the next request. Without Valkey
	// the entry expires on its own within the cache TTL.
	var kv sitemode.KV = settingStore
	if client, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword); err == nil {
		defer client.Close()
		kv = cache.NewSettingCache(client, settingStore, cache.DefaultSettingTTL)
	} else {
		fmt.Fprintf(os.Stderr, "warning: valkey unreachable, changes may take up to %s to propagate\n", cache.DefaultSettingTTL)
	}

	modes := sitemode.NewService(kv)

	switch cmd {
	case "status":
		s := modes.Resolve(*site)
		fmt.Printf("site:    %s\n", *site)
		fmt.Printf("status:  %s\n", s.Status())
		fmt.Printf("mode:    %s\n", s.Mode)
		fmt.Printf("enabled: %v\n", s.Enabled)

	case "online", "maintenance", "development":
		s, applied, err := modes.Switch(*site, cmd)
		if err != nil {
			fatal("switch mode: %v", err)
		}
		if applied {
			store.NewGateEventStore(db).Log(*site, cliActor(), store.GateActionSwitch, string(s.Status()))
		}
		fmt.Printf("site %s is now %s\n", *site, s.Status())

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}
}

// cliActor names the invoking OS user in the audit trail.
func cliActor() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return "cli:" + u.Username
	}
	return "cli"
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "porteiroctl: "+format+"\n", args...)
	os.Exit(1)
}
