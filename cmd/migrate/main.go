package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ludwingperezt/mobileappws/internal/auth"
	"github.com/ludwingperezt/mobileappws/internal/migrate"
	"github.com/ludwingperezt/mobileappws/internal/obs"
	"github.com/ludwingperezt/mobileappws/internal/store/sqlstore"
)

func main() {
	log.SetFlags(0)
	var (
		cmd           = flag.String("cmd", "", "up, down, status or seed")
		driver        = flag.String("driver", envOr("MOBILEAPP_STORE_DRIVER", migrate.DialectPostgres), "postgres or sqlite")
		dsn           = flag.String("dsn", os.Getenv("MOBILEAPP_DSN"), "database DSN")
		adminEmail    = flag.String("admin-email", envOr("MOBILEAPP_ADMIN_EMAIL", "admin@admin.admin"), "admin account created by seed")
		adminPassword = flag.String("admin-password", os.Getenv("MOBILEAPP_ADMIN_PASSWORD"), "admin password used by seed")
		verbose       = flag.Bool("v", false, "log each migration")
	)
	flag.Parse()

	if *cmd == "" {
		*cmd = flag.Arg(0)
	}
	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or MOBILEAPP_DSN")
	}
	if *cmd == "" {
		log.Fatal("usage: migrate -cmd up|down|status|seed [-driver postgres|sqlite] [-dsn ...]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	st, err := sqlstore.Open(ctx, *driver, *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer st.Close()

	mgr, err := migrate.NewManager(st.DB(), st.Dialect(), migrate.WithVerbose(*verbose))
	if err != nil {
		log.Fatalf("migrations: %v", err)
	}

	switch *cmd {
	case "up":
		var n int64
		n, err = mgr.Up(ctx)
		if err == nil {
			fmt.Printf("database at version %d\n", n)
		}
	case "down":
		err = mgr.Down(ctx)
	case "status":
		var entries []migrate.Entry
		entries, err = mgr.Status(ctx)
		for _, e := range entries {
			state := "pending"
			if e.Applied {
				state = "applied"
			}
			fmt.Printf("%05d  %-8s %s\n", e.Version, state, e.Path)
		}
	case "seed":
		if *adminPassword == "" {
			log.Fatal("seed needs -admin-password or MOBILEAPP_ADMIN_PASSWORD")
		}
		if _, err = mgr.Up(ctx); err != nil {
			break
		}
		seed := auth.AdminSeed{Email: *adminEmail, Password: *adminPassword, FirstName: "Admin", LastName: "Admin"}
		err = auth.EnsureBuiltins(ctx, st, auth.NewBcryptHasher(), seed, obs.Logger())
	default:
		log.Fatalf("unknown command %q", *cmd)
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", *cmd, err)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
