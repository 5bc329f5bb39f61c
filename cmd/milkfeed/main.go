package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nhle/milkfeed/internal/app"
	"github.com/nhle/milkfeed/internal/model"
	"github.com/nhle/milkfeed/internal/store"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "milkfeed: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// A .env file is optional; MILKFEED_* variables may also come from the shell.
	_ = godotenv.Load()

	flags := pflag.NewFlagSet("milkfeed", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", model.DefaultConfigPath(), "path to the YAML config file")
	transport := flags.StringP("transport", "t", "", "feed transport (websocket, redis, amqp, mailbox)")
	host := flags.String("host", "", "backend host for the websocket feed")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *transport != "" {
		cfg.Feed.Transport = *transport
	}
	if *host != "" {
		cfg.Feed.Host = *host
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Log.Path), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	logFile, err := tea.LogToFile(cfg.Log.Path, "milkfeed")
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	var st store.Store
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
		log.Printf("creating data directory: %v", err)
		st = store.Unavailable{Err: err}
	} else if db, err := store.NewSQLiteStore(cfg.Store.Path); err != nil {
		log.Printf("local store unavailable, continuing without persistence: %v", err)
		st = store.Unavailable{Err: err}
	} else {
		defer db.Close()
		st = db
	}

	p := tea.NewProgram(
		app.New(app.Options{
			Config:     *cfg,
			ConfigPath: *configPath,
			Store:      st,
		}),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}
