package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danielhkuo/vote-x/allowlist"
	"github.com/danielhkuo/vote-x/auth"
	"github.com/danielhkuo/vote-x/cliparse"
	"github.com/danielhkuo/vote-x/db"
	"github.com/danielhkuo/vote-x/pollapi"
	"github.com/danielhkuo/vote-x/store"
)

// app holds everything a command needs, built once the configuration is
// resolved.
type app struct {
	cfg     cliparse.Config
	db      *db.DB
	session *auth.Session
	client  *pollapi.Client
	auth    *pollapi.Authenticator
	store   *store.Store
}

var (
	cfg cliparse.Config
	a   *app
)

var rootCmd = &cobra.Command{
	Use:           "votex",
	Short:         "Browse, create and vote on polls",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := cliparse.LoadDotEnv(); err != nil {
			return err
		}
		if err := cliparse.Resolve(cmd.Flags(), &cfg); err != nil {
			return err
		}
		setupLogging(cfg.LogLevel)

		var err error
		a, err = newApp(cmd.Context(), cfg)
		return err
	},
}

func init() {
	cliparse.Register(rootCmd.PersistentFlags(), &cfg)
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

func newApp(ctx context.Context, cfg cliparse.Config) (*app, error) {
	conn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	tokens := auth.NewTokens(db.NewKV(conn))
	if cfg.VoterEmail != "" {
		if stored, err := tokens.Email(); err == nil && stored == "" {
			if err := tokens.SetEmail(allowlist.Normalize(cfg.VoterEmail)); err != nil {
				slog.Warn("failed to store voter email", "error", err)
			}
		}
	}

	session := auth.NewSession(tokens)
	if err := session.Reload(); err != nil {
		conn.Close()
		return nil, err
	}

	client, err := pollapi.New(cfg.APIURL, tokens,
		pollapi.WithTimeout(cfg.Timeout),
		pollapi.WithPageLimit(cfg.PageLimit),
	)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		db:      conn,
		session: session,
		client:  client,
		auth:    &pollapi.Authenticator{Client: client, Session: session},
		store: store.New(session,
			store.WithService(client),
			store.WithChoices(db.NewChoices(conn)),
			store.WithSyncWorkers(cfg.SyncWorkers),
		),
	}, nil
}

// closeApp releases the state database of the last run.
func closeApp() {
	if a == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		slog.Warn("failed to close state database", "error", err)
	}
	a = nil
}

// resume loads the profile for a stored token, refreshing the token once
// if the service rejects it.
func (a *app) resume(ctx context.Context) error {
	if !a.session.Viewer().Authenticated {
		return nil
	}
	_, err := a.auth.LoadProfile(ctx)
	if pollapi.IsStatus(err, http.StatusUnauthorized) {
		if err := a.auth.Refresh(ctx); err != nil {
			slog.Warn("session expired, continuing as guest", "error", err)
			return nil
		}
		_, err = a.auth.LoadProfile(ctx)
	}
	return err
}

// load fetches the poll collection and the viewer's choices.
func (a *app) load(ctx context.Context) error {
	if err := a.resume(ctx); err != nil {
		return err
	}
	if err := a.store.Refresh(ctx); err != nil {
		return err
	}
	if a.session.Viewer().Authenticated {
		if err := a.store.SyncVotes(ctx); err != nil {
			slog.Warn("failed to sync votes", "error", err)
		}
		return nil
	}
	return a.store.RestoreChoices(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	closeApp()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}
