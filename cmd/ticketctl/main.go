// ticketctl runs operational tasks against the ticket-sales store.
//
//	ticketctl [flags] seed|verify...
//
// Commands run in the order given, so "ticketctl --driver memory seed
// verify" seeds an in-process store and checks it in one go. verify exits
// with status 2 when any event is inconsistent.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/iliyamo/ticket-sales/internal/config"
	"github.com/iliyamo/ticket-sales/internal/database"
	"github.com/iliyamo/ticket-sales/internal/ops"
	"github.com/iliyamo/ticket-sales/internal/purchase"
	"github.com/iliyamo/ticket-sales/internal/repository"
	"github.com/iliyamo/ticket-sales/internal/repository/memory"
)

type exitError int

func (e exitError) Error() string { return "exit status " + strconv.Itoa(int(e)) }

func main() {
	if err := run(); err != nil {
		var code exitError
		if errors.As(err, &code) {
			os.Exit(int(code))
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var (
		driver         string
		db             database.Options
		migrate        bool
		purchases      int
		refundRestores bool
		verbose        bool
	)
	fs := pflag.NewFlagSet("ticketctl", pflag.ContinueOnError)
	fs.StringVar(&driver, "driver", env("STORE_DRIVER", config.StoreMySQL), "store driver: mysql or memory")
	fs.StringVar(&db.User, "db-user", os.Getenv("DB_USER"), "MySQL user")
	fs.StringVar(&db.Pass, "db-pass", os.Getenv("DB_PASS"), "MySQL password")
	fs.StringVar(&db.Host, "db-host", env("DB_HOST", "127.0.0.1"), "MySQL host")
	fs.StringVar(&db.Port, "db-port", env("DB_PORT", "3306"), "MySQL port")
	fs.StringVar(&db.Name, "db-name", os.Getenv("DB_NAME"), "MySQL database")
	fs.BoolVar(&migrate, "migrate", false, "apply the schema before running commands")
	fs.IntVarP(&purchases, "purchases", "n", 25, "purchases to attempt per event when seeding")
	fs.BoolVar(&refundRestores, "refund-restores", true, "refunded purchases return tickets to inventory")
	fs.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ticketctl [flags] seed|verify...\n\nFlags:\n%s", fs.FlagUsages())
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	cmds := fs.Args()
	if len(cmds) == 0 {
		fs.Usage()
		return exitError(2)
	}
	for _, c := range cmds {
		if c != "seed" && c != "verify" {
			return fmt.Errorf("unknown command %q", c)
		}
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := openStore(ctx, driver, db, migrate)
	if err != nil {
		return err
	}
	mgr := purchase.NewManager(store, purchase.Options{RefundRestoresInventory: refundRestores, Logger: log})

	for _, c := range cmds {
		switch c {
		case "seed":
			res, err := ops.Seed(ctx, store, mgr, ops.SeedOptions{Purchases: purchases, Log: log})
			if err != nil {
				return err
			}
			fmt.Printf("seeded %d users, %d events, %d purchases (%d completed, %d cancelled)\n",
				res.Users, res.Events, res.Purchases, res.Completed, res.Cancelled)
		case "verify":
			checks, err := ops.Verify(ctx, store, refundRestores)
			if err != nil {
				return err
			}
			if ops.PrintChecks(os.Stdout, checks) > 0 {
				return exitError(2)
			}
		}
	}
	return nil
}

func openStore(ctx context.Context, driver string, o database.Options, migrate bool) (repository.Store, error) {
	switch driver {
	case config.StoreMemory:
		return memory.New(), nil
	case config.StoreMySQL:
		db, err := database.Open(o)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := database.Migrate(ctx, db); err != nil {
				return nil, err
			}
		}
		return repository.NewMySQLStore(db), nil
	}
	return nil, fmt.Errorf("unknown driver %q", driver)
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
