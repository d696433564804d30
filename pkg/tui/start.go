package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"safehdr/pkg/header"
	"safehdr/pkg/store"
	"safehdr/pkg/watcher"
)

// Start runs the terminal header until the user quits.
func Start(b *header.Builder, w *watcher.Watcher, s *store.Store, logger *zap.Logger, version string) error {
	Version = version
	m := initialModel(b, w, s, logger)
	m.sub = w.Subscribe()
	defer w.Unsubscribe(m.sub)

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("terminal UI: %w", err)
	}
	return nil
}
