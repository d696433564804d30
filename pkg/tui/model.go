package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"safehdr/pkg/header"
	"safehdr/pkg/store"
	"safehdr/pkg/watcher"
)

// Version is set by Start()
var Version = "dev"

// maxHistory bounds the fiat history chart.
const maxHistory = 120

// --- Messages ---

type clearStatusMsg struct{}
type statusMsg string

// --- Model ---

type model struct {
	builder *header.Builder
	watcher *watcher.Watcher
	store   *store.Store
	logger  *zap.Logger
	sub     watcher.Subscriber

	width           int
	height          int
	spinner         spinner.Model
	statusMessage   string
	lastError       string
	lastUpdate      time.Time
	fiatHistory     []float64
	historyCurrency string
	showHelp        bool
}

func initialModel(b *header.Builder, w *watcher.Watcher, s *store.Store, logger *zap.Logger) model {
	if logger == nil {
		logger = zap.NewNop()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return model{
		builder: b,
		watcher: w,
		store:   s,
		logger:  logger,
		spinner: sp,
	}
}

func (m model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.sub != nil {
		cmds = append(cmds, listenForWatcher(m.sub))
	}
	cmds = append(cmds, m.spinner.Tick)
	return tea.Batch(cmds...)
}

func listenForWatcher(sub watcher.Subscriber) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub
		if !ok {
			return nil
		}
		return ev
	}
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}
