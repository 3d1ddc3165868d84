package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	_ "github.com/mattn/go-sqlite3"

	"github.com/uecdago/uecda-server/pkg/logging"
	"github.com/uecdago/uecda-server/pkg/server"
)

func main() {
	var (
		configPath string
		host       string
		port       int
		games      int
		gamelogDir string
		dbPath     string
		seed       int64
		showHands  bool
		logFile    string
		debugLevel string
		verbose    bool
	)
	flag.StringVar(&configPath, "config", "", "Path to YAML config file (missing file uses defaults)")
	flag.StringVar(&host, "host", "", "Host to listen on (overrides config)")
	flag.IntVar(&port, "port", 0, "Port to listen on (overrides config)")
	flag.IntVar(&games, "games", 0, "Number of games in the session (overrides config)")
	flag.StringVar(&gamelogDir, "gamelog", "", "Directory for session journals (empty disables journaling)")
	flag.StringVar(&dbPath, "db", "", "Path to SQLite results database (empty disables recording)")
	flag.Int64Var(&seed, "seed", 0, "Deterministic deck seed (0 = random; UECDA_SEED env overrides)")
	flag.BoolVar(&showHands, "showhands", false, "Log every dealt hand")
	flag.StringVar(&logFile, "logfile", "", "Rotated log file (empty logs to stdout only)")
	flag.StringVar(&debugLevel, "debuglevel", "", "Logging level: trace, debug, info, warn, error (overrides config)")
	flag.BoolVar(&verbose, "v", false, "Shorthand for -debuglevel debug")
	flag.Parse()

	cfg, err := server.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Flags the user actually set beat the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Server.Host = host
		case "port":
			cfg.Server.Port = port
		case "games":
			cfg.Game.NumGames = games
		case "showhands":
			cfg.Logging.ShowHands = showHands
		case "debuglevel":
			cfg.Logging.Level = debugLevel
		}
	})
	if verbose {
		cfg.Logging.Level = "debug"
	}

	if seed == 0 {
		if env := os.Getenv("UECDA_SEED"); env != "" {
			if v, err := strconv.ParseInt(env, 10, 64); err == nil {
				seed = v
			}
		}
	}

	logBackend, err := logging.NewLogBackend(logging.LogConfig{
		LogFile:    logFile,
		DebugLevel: cfg.Logging.Level,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging error: %v\n", err)
		os.Exit(1)
	}
	defer logBackend.Close()

	var db server.Database
	if dbPath != "" {
		db, err = server.NewDatabase(dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to init db: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	srv, err := server.NewServer(cfg, server.Options{
		LogBackend: logBackend,
		DB:         db,
		JournalDir: gamelogDir,
		Seed:       seed,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "session failed: %v\n", err)
		os.Exit(1)
	}
}
