package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/csheth/adventure/internal/config"
	"github.com/csheth/adventure/internal/generate"
	"github.com/csheth/adventure/internal/illustration"
	"github.com/csheth/adventure/internal/logger"
	"github.com/csheth/adventure/internal/tui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("failed to load configuration:", err)
		os.Exit(1)
	}

	backend := flag.String("backend", cfg.BackendURL, "base URL of the story backend")
	encoding := flag.String("encoding", cfg.Encoding, "how page context is sent: messages or prompt")
	timeout := flag.Duration("timeout", cfg.HTTPTimeout, "HTTP timeout for each backend request")
	cacheDir := flag.String("cache-dir", cfg.CacheDir, "directory for saved illustrations")
	logFile := flag.String("log-file", cfg.LogFile, "write structured logs to this file")
	logLevel := flag.String("log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	seedFile := flag.String("seed-file", "", "read the opening prompt from this file")
	noAltScreen := flag.Bool("no-alt-screen", false, "disable the alternate screen buffer")
	flag.Parse()

	cfg.BackendURL = *backend
	cfg.Encoding = *encoding
	cfg.HTTPTimeout = *timeout
	cfg.CacheDir = *cacheDir
	cfg.LogFile = *logFile
	cfg.LogLevel = *logLevel
	if err := cfg.Validate(); err != nil {
		fmt.Println("invalid configuration:", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.LogLevel,
		Encoding:   cfg.LogEncoding,
		OutputPath: cfg.LogFile,
	})
	if err != nil {
		fmt.Println("failed to create logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	seed := ""
	if *seedFile != "" {
		data, err := os.ReadFile(*seedFile)
		if err != nil {
			fmt.Println("failed to read seed file:", err)
			os.Exit(1)
		}
		seed = strings.TrimSpace(string(data))
	}

	client, err := generate.New(generate.Config{
		BaseURL:  cfg.BackendURL,
		Encoding: generate.Encoding(strings.ToLower(cfg.Encoding)),
		Timeout:  cfg.HTTPTimeout,
	})
	if err != nil {
		fmt.Println("failed to configure backend:", err)
		os.Exit(1)
	}

	cache, err := illustration.NewCache(cfg.CacheDir, nil)
	if err != nil {
		fmt.Println("illustration saving disabled:", err)
		log.Warn("illustration cache unavailable", zap.Error(err))
		cache = nil
	}

	log.Info("starting",
		zap.String("backend", client.Name()),
		zap.Duration("timeout", cfg.HTTPTimeout),
	)

	opts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if !*noAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(
		tui.New(tui.Config{
			Client: client,
			Seed:   seed,
			Cache:  cache,
			Logger: log,
		}),
		opts...,
	)

	if _, err := program.Run(); err != nil {
		log.Error("program error", zap.Error(err))
		fmt.Println("program error:", err)
		os.Exit(1)
	}
}
