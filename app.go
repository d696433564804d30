package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"safehdr/pkg/config"
	"safehdr/pkg/format"
	"safehdr/pkg/header"
	"safehdr/pkg/logging"
	"safehdr/pkg/platform"
	"safehdr/pkg/store"
	"safehdr/pkg/watcher"
)

// safePlaceholder in new_transaction_url is replaced by "<shortName>:<address>".
const safePlaceholder = "{{safe}}"

// app wires the session store, watcher and header builder for one command.
type app struct {
	cfgPath string
	cfg     config.Config
	logger  *zap.Logger
	store   *store.Store
	watcher *watcher.Watcher
	builder *header.Builder
}

type appOptions struct {
	// logToFile sends logs to the configured log file instead of stderr.
	logToFile bool
	// desktop enables the system clipboard and browser.
	desktop bool
}

func loadConfig() (config.Config, string, error) {
	path, err := config.GetConfigPath(configFlag)
	if err != nil {
		return config.Config{}, "", fmt.Errorf("determining config path: %w", err)
	}
	cfg, err := config.LoadConfigFromFile(path)
	if err != nil {
		return config.Config{}, "", fmt.Errorf("loading config from %s: %w", path, err)
	}
	return cfg, path, nil
}

func newLogger(cfg config.Config, toFile bool) (*zap.Logger, error) {
	level := cfg.LogLevel
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	output := ""
	if toFile {
		output = cfg.LogFile
		if output == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			output = filepath.Join(home, ".safehdr.log")
		}
	}
	return logging.New(level, output)
}

func newApp(opts appOptions) (*app, error) {
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg, opts.logToFile)
	if err != nil {
		return nil, err
	}

	st := store.New(cfg, path, logger.Named("store"))
	w := watcher.NewWatcher(st, time.Duration(cfg.PollIntervalSeconds)*time.Second, logger.Named("watcher"))

	locale := st.Locale()
	if localeFlag != "" {
		locale = localeFlag
	}
	fiat := format.NewFiatFormatter(locale, format.DefaultMemoSize)
	builderOpts := []header.Option{
		header.WithFiatFormatter(fiat),
		header.WithLogger(logger.Named("header")),
	}
	if opts.desktop {
		browser := platform.Browser{}
		builderOpts = append(builderOpts,
			header.WithClipboard(platform.SystemClipboard{}),
			header.WithOpener(browser),
		)
		if cfg.NewTransactionURL != "" {
			builderOpts = append(builderOpts, header.WithNewTransaction(func() {
				target := newTransactionURL(cfg.NewTransactionURL, st)
				if err := browser.Open(target); err != nil {
					logger.Warn("failed to open new transaction flow", zap.String("url", target), zap.Error(err))
				}
			}))
		}
	}

	b := header.NewBuilder(header.Sources{
		Safe:     w,
		Balances: w,
		Currency: st,
		Chains:   st,
		Settings: st,
	}, builderOpts...)

	logger.Debug("configuration loaded",
		zap.String("path", path),
		zap.Int("safes", len(cfg.Safes)),
		zap.Int("chains", len(cfg.Chains)),
		zap.String("currency", st.Currency()),
		zap.String("locale", fiat.Locale()),
	)

	return &app{cfgPath: path, cfg: cfg, logger: logger, store: st, watcher: w, builder: b}, nil
}

// newTransactionURL fills the active Safe into tmpl.
func newTransactionURL(tmpl string, st *store.Store) string {
	safe, ok := st.ActiveSafe()
	if !ok {
		return tmpl
	}
	ref := safe.Address
	if chain, ok := st.ActiveChain().Get(); ok {
		ref = chain.ShortName + ":" + safe.Address
	}
	return strings.ReplaceAll(tmpl, safePlaceholder, ref)
}

func (a *app) close() {
	_ = a.logger.Sync()
}
