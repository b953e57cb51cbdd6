package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/stratuslab/pdisk-portal/internal/database"
	"github.com/stratuslab/pdisk-portal/internal/portal"
	"github.com/stratuslab/pdisk-portal/internal/userauth"
	"github.com/stratuslab/pdisk-portal/internal/util/slogx"
	"github.com/stratuslab/pdisk-portal/internal/util/style"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Args:  cobra.ExactArgs(0),
	Short: "Start the portal server",
}

func newLogger(o slogx.Options) (*slog.Logger, error) {
	log, err := slogx.New(os.Stderr, style.IsStderrTTY(), o)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	slog.SetDefault(log)
	return log, nil
}

func init() {
	p := serveCmd.Flags()
	optsPath := p.StringP(
		"options", "o", "",
		"options file",
	)
	secretsPath := p.StringP(
		"secrets", "s", "",
		"secrets file, created with fresh keys if missing",
	)
	if err := serveCmd.MarkFlagRequired("options"); err != nil {
		panic(err)
	}
	if err := serveCmd.MarkFlagRequired("secrets"); err != nil {
		panic(err)
	}

	serveCmd.RunE = func(cmd *cobra.Command, _args []string) error {
		secrets, err := loadSecrets(*secretsPath)
		if err != nil {
			return err
		}
		opts, err := loadOptions(*optsPath)
		if err != nil {
			return err
		}
		if err := opts.MixSecrets(&secrets); err != nil {
			return fmt.Errorf("mix secrets into options: %w", err)
		}

		log, err := newLogger(opts.Log)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		db, err := database.New(log, opts.DB)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()
		userMgr := userauth.NewManager(log, db, opts.Users)
		defer userMgr.Close()

		mux := http.NewServeMux()
		if err := portal.Handle(ctx, log, mux, portal.Config{
			UserManager:         userMgr,
			SessionStoreFactory: db,
		}, opts.Portal); err != nil {
			return fmt.Errorf("set up portal: %w", err)
		}

		servers, err := newServers(ctx, log, &opts, mux)
		if err != nil {
			return fmt.Errorf("create servers: %w", err)
		}
		servers.Go()
		defer servers.Shutdown()

		<-ctx.Done()
		log.Info("shutting down")
		return nil
	}
}
