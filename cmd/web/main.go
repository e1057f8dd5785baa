package main

import (
	"flag"
	"net/http"
	"os"
	"strings"

	"github.com/AdamBeresnev/op-chess-club/internal/config"
	"github.com/AdamBeresnev/op-chess-club/internal/db"
	"github.com/AdamBeresnev/op-chess-club/internal/middleware"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg.Log)

	database, err := db.InitDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer database.Close()

	if err := db.RunMigrations(database.DB); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	providers := middleware.InitAuth(cfg.Auth)

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.Session.Lifetime
	sessionManager.Store = sqlite3store.New(database.DB)

	router := newRouter(newApp(database, sessionManager, clockwork.NewRealClock(), cfg, providers))

	log.Info().Str("addr", cfg.Server.Addr).Msg("server starting")
	if err := http.ListenAndServe(cfg.Server.Addr, router); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func setupLogging(cfg config.Log) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
