package store

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"safehdr/pkg/config"
	"safehdr/pkg/format"
	"safehdr/pkg/models"
)

// SupportedCurrencies is the cycle order used by CycleCurrency.
var SupportedCurrencies = []string{"USD", "EUR", "GBP", "CHF", "JPY", "CAD", "AUD", "BRL", "INR"}

// Store is the session state shared by the header, watcher and front ends:
// the selected Safe, currency and settings, plus the chain registry.
type Store struct {
	mu     sync.RWMutex
	cfg    config.Config
	active int
	path   string
	logger *zap.Logger
}

func New(cfg config.Config, path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if code, err := format.NormalizeCurrency(cfg.Currency); err == nil {
		cfg.Currency = code
	} else {
		logger.Warn("unknown currency in config, using USD", zap.String("currency", cfg.Currency))
		cfg.Currency = "USD"
	}
	return &Store{cfg: cfg, active: cfg.SelectedIndex(), path: path, logger: logger}
}

func (s *Store) Currency() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Currency
}

func (s *Store) SetCurrency(code string) error {
	norm, err := format.NormalizeCurrency(code)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg.Currency = norm
	s.mu.Unlock()
	return nil
}

// CycleCurrency moves to the next supported currency and returns it.
func (s *Store) CycleCurrency() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := SupportedCurrencies[0]
	for i, c := range SupportedCurrencies {
		if c == s.cfg.Currency {
			next = SupportedCurrencies[(i+1)%len(SupportedCurrencies)]
			break
		}
	}
	s.cfg.Currency = next
	return next
}

func (s *Store) Locale() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Locale
}

func (s *Store) Settings() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Settings{ShortName: models.ShortNameSettings{Copy: s.cfg.Settings.ShortName.Copy}}
}

// ToggleShortNameCopy flips the short name copy setting and returns the new value.
func (s *Store) ToggleShortNameCopy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Settings.ShortName.Copy = !s.cfg.Settings.ShortName.Copy
	return s.cfg.Settings.ShortName.Copy
}

func (s *Store) Safes() []config.SafeConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]config.SafeConfig(nil), s.cfg.Safes...)
}

func (s *Store) ActiveSafe() (config.SafeConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active < 0 || s.active >= len(s.cfg.Safes) {
		return config.SafeConfig{}, false
	}
	return s.cfg.Safes[s.active], true
}

func (s *Store) ActiveIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SelectSafe makes the Safe at idx (wrapped around) the active one.
func (s *Store) SelectSafe(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.cfg.Safes)
	if n == 0 {
		return
	}
	idx = ((idx % n) + n) % n
	s.active = idx
	s.cfg.SelectedSafe = s.cfg.Safes[idx].Address
}

func (s *Store) ChainConfig(name string) (config.ChainConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Chain(name)
}

// ActiveChain resolves the chain of the active Safe.
func (s *Store) ActiveChain() models.Optional[models.Chain] {
	safe, ok := s.ActiveSafe()
	if !ok {
		return models.None[models.Chain]()
	}
	c, ok := s.ChainConfig(safe.Chain)
	if !ok || strings.TrimSpace(c.ShortName) == "" {
		return models.None[models.Chain]()
	}
	return models.Some(models.Chain{
		Name:                     c.Name,
		ShortName:                c.ShortName,
		ChainID:                  c.ChainID,
		BlockExplorerURITemplate: c.BlockExplorerURITemplate,
	})
}

func (s *Store) Config() config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Persist writes the session state back to the config file.
func (s *Store) Persist() error {
	cfg := s.Config()
	if s.path == "" {
		return nil
	}
	if err := config.SaveConfig(cfg, s.path); err != nil {
		s.logger.Error("failed to persist settings", zap.String("path", s.path), zap.Error(err))
		return err
	}
	s.logger.Info("settings persisted", zap.String("path", s.path))
	return nil
}
