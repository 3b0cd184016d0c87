// main.go — movie-rated API server entrypoint.
// Starts the HTTP API on PORT (default 8080).
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	_ "github.com/lib/pq"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/James-Kabz/movie-rated/internal/auth"
	"github.com/James-Kabz/movie-rated/internal/config"
	"github.com/James-Kabz/movie-rated/internal/email"
	"github.com/James-Kabz/movie-rated/internal/logger"
	"github.com/James-Kabz/movie-rated/internal/telemetry"
	"github.com/James-Kabz/movie-rated/services/api"
	"github.com/James-Kabz/movie-rated/services/metadata"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogFormat, cfg.LogLevel)

	if err := telemetry.Init(cfg.SentryDSN, version); err != nil {
		log.Warn("sentry init failed", "err", err)
	}
	defer telemetry.Flush()

	db, err := connectDB(cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	tmdb, err := metadata.NewClient(cfg.TMDBAPIKey)
	if err != nil {
		log.Error("tmdb client", "err", err)
		os.Exit(1)
	}

	// The OIDC verifier hits Google's discovery endpoint once at startup.
	var verifier api.IDTokenVerifier
	var oauthCfg *oauth2.Config
	if cfg.GoogleClientID != "" {
		gv, err := auth.NewGoogleVerifier(context.Background(), cfg.GoogleClientID)
		if err != nil {
			log.Error("google verifier", "err", err)
			os.Exit(1)
		}
		verifier = gv
		oauthCfg = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.OAuthRedirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		}
	} else {
		log.Warn("GOOGLE_CLIENT_ID not set — sign-in endpoints disabled")
	}

	var mail *email.Sender
	if cfg.SMTPHost != "" {
		mail = email.NewSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailFrom)
	} else {
		log.Warn("EMAIL_SERVER_HOST not set — watchlist mail disabled")
	}

	srv := api.NewServer(db, log, tmdb, verifier, oauthCfg, mail, cfg.FrontendURL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx, cfg.Port); err != nil {
		log.Error("server exited", "err", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}
