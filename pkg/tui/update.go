package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"safehdr/pkg/header"
	"safehdr/pkg/models"
	"safehdr/pkg/watcher"
)

const statusDuration = 2 * time.Second

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case watcher.Event:
		if m.sub != nil {
			cmds = append(cmds, listenForWatcher(m.sub))
		}

		switch msg.Type {
		case watcher.EventActiveChanged:
			m.fiatHistory = nil
			m.lastError = ""
		case watcher.EventBalancesUpdated:
			if data, ok := msg.Data.(models.BalancesView); ok {
				if data.Currency != m.historyCurrency {
					m.fiatHistory = nil
					m.historyCurrency = data.Currency
				}
				m.fiatHistory = recordFiat(m.fiatHistory, data.FiatTotal)
			}
		case watcher.EventSafeInfoUpdated:
			m.lastError = ""
		case watcher.EventFetchFailed:
			if data, ok := msg.Data.(watcher.FetchFailure); ok {
				m.lastError = fmt.Sprintf("%s: %s", data.Kind, data.Error)
			}
		}
		m.lastUpdate = time.Now()

	case tea.KeyMsg:
		if msg.String() == "?" {
			m.showHelp = !m.showHelp
			return m, nil
		}
		if m.showHelp {
			if msg.String() == "q" || msg.String() == "esc" {
				m.showHelp = false
			}
			return m, nil
		}

		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "c":
			m.press(header.ButtonCopy, "Address copied to clipboard", "")
			cmds = append(cmds, clearStatusAfter(statusDuration))

		case "o":
			m.press(header.ButtonExplorer, "Opened block explorer", "No explorer link for this chain")
			cmds = append(cmds, clearStatusAfter(statusDuration))

		case "n":
			m.press(header.ButtonNewTransaction, "Opening new transaction", "New transaction is not configured")
			cmds = append(cmds, clearStatusAfter(statusDuration))

		case "s":
			on := m.store.ToggleShortNameCopy()
			state := "off"
			if on {
				state = "on"
			}
			m.statusMessage = fmt.Sprintf("Copy with chain prefix: %s", state)
			cmds = append(cmds, m.persist(), clearStatusAfter(statusDuration))

		case "u":
			code := m.store.CycleCurrency()
			m.watcher.CurrencyChanged()
			m.fiatHistory = nil
			m.statusMessage = fmt.Sprintf("Currency: %s", code)
			cmds = append(cmds, m.persist(), clearStatusAfter(statusDuration))

		case "tab", "right", "l":
			m.selectSafe(m.store.ActiveIndex() + 1)

		case "shift+tab", "left", "h":
			m.selectSafe(m.store.ActiveIndex() - 1)

		case "r":
			m.watcher.Refresh()
			m.statusMessage = "Refreshing data..."
			cmds = append(cmds, clearStatusAfter(statusDuration))
		}

	case statusMsg:
		m.statusMessage = string(msg)
		cmds = append(cmds, clearStatusAfter(statusDuration))

	case clearStatusMsg:
		m.statusMessage = ""
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// press clicks a header button. ok is shown when the button did something,
// inert otherwise; an empty message leaves the status alone.
func (m *model) press(kind header.ButtonKind, ok, inert string) {
	btn, found := m.builder.Build().Button(kind)
	if !found {
		return
	}
	if btn.Press() {
		m.statusMessage = ok
		return
	}
	if inert != "" {
		m.statusMessage = inert
	}
}

func (m *model) selectSafe(idx int) {
	if len(m.store.Safes()) < 2 {
		return
	}
	m.store.SelectSafe(idx)
	m.watcher.Activate()
	m.fiatHistory = nil
	m.lastError = ""
}

func (m model) persist() tea.Cmd {
	s := m.store
	logger := m.logger
	return func() tea.Msg {
		if err := s.Persist(); err != nil {
			logger.Warn("could not save settings", zap.Error(err))
			return statusMsg("Failed to save settings")
		}
		return nil
	}
}
