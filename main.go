package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/flipcards/internal/config"
	"github.com/robalobadob/flipcards/internal/game"
	"github.com/robalobadob/flipcards/internal/httpserver"
	"github.com/robalobadob/flipcards/internal/session"
	"github.com/robalobadob/flipcards/internal/store"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "flipcards",
		Short: "Memory-matching card game server.",
		// Running without a subcommand serves, like the deployed binary always did.
		RunE:          func(cmd *cobra.Command, args []string) error { return serve(cmd.Context(), "", "") },
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), deckCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("flipcards exited")
	}
}

func serveCmd() *cobra.Command {
	var port, storeKind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the game API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), port, storeKind)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	cmd.Flags().StringVar(&storeKind, "store", "", "snapshot store: memory or sqlite (overrides STORE)")
	return cmd
}

func deckCmd() *cobra.Command {
	var seed uint64
	cmd := &cobra.Command{
		Use:   "deck",
		Short: "Print a freshly shuffled deck",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
			if cmd.Flags().Changed("seed") {
				r = rand.New(rand.NewPCG(seed, seed))
			}
			for i, c := range game.NewDeck(r) {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d  %s\n", i, c.Color)
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 0, "seed for a reproducible deck")
	return cmd
}

func serve(ctx context.Context, port, storeKind string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if port != "" {
		cfg.Port = port
	}
	if storeKind != "" {
		cfg.Store = storeKind
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	setupLogging(cfg)
	if cfg.DefaultSecret() {
		log.Warn().Msg("JWT_SECRET not set; using development secret")
	}

	var st store.Store = store.NewMemoryStore()
	if cfg.Store == config.StoreSQLite {
		sq, err := store.OpenSQLite(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open sqlite %s: %w", cfg.DBPath, err)
		}
		defer sq.Close()
		st = sq
	}

	mgr := session.NewManager(session.ManagerOptions{Store: st, IdleTimeout: cfg.IdleTimeout})
	defer mgr.Close()
	go mgr.Run(ctx, time.Minute)

	srv := httpserver.New(mgr, httpserver.Options{
		ClientOrigin: cfg.ClientOrigin,
		JWTSecret:    cfg.JWTSecret,
		TokenTTL:     cfg.TokenTTL,
	})
	log.Info().Str("port", cfg.Port).Str("store", cfg.Store).Msg("starting flipcards server")
	return srv.ListenAndServe(ctx, ":"+cfg.Port)
}

func setupLogging(cfg config.Config) {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
