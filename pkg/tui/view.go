package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"safehdr/pkg/header"
	"safehdr/pkg/models"
	"safehdr/pkg/utils"
)

func (m model) View() string {
	if m.showHelp {
		return m.viewHelp()
	}

	safes := m.store.Safes()
	if len(safes) == 0 {
		return "No Safes configured. Add one to the config file and restart."
	}

	hdr := m.builder.Build()
	active := m.store.ActiveIndex()
	safe := safes[active]

	targetWidth := m.width - 4
	if targetWidth < 0 {
		targetWidth = 0
	}
	contentWidth := targetWidth - 4
	if contentWidth < 0 {
		contentWidth = 0
	}

	// Title
	title := "Safe"
	if safe.Name != "" {
		title = fmt.Sprintf("Safe - %s", utils.TruncateString(safe.Name, 24))
	}
	if len(safes) > 1 {
		title = fmt.Sprintf("%s (%d/%d)", title, active+1, len(safes))
	}

	// Icon badge and address
	var identity string
	if hdr.Icon.Status == models.IconLoading {
		identity = m.spinner.View() + " " + skeletonStyle.Render(labelText(hdr.AddressLabel))
	} else {
		addr := labelText(hdr.AddressLabel)
		if chain, ok := m.store.ActiveChain().Get(); ok {
			addr = fmt.Sprintf("%s %s", subtleStyle.Render(chain.ShortName+":"), addr)
		}
		identity = lipgloss.JoinHorizontal(lipgloss.Center, badgeStyle.Render(badgeText(hdr.Icon)), " ", addr)
	}

	// Fiat balance
	var fiat string
	if hdr.FiatLabel.Loading {
		fiat = m.spinner.View() + " " + skeletonStyle.Render(skeleton)
	} else {
		fiat = fiatStyle.Render(hdr.FiatLabel.Text)
	}
	fiat = lipgloss.NewStyle().Width(contentWidth).Align(lipgloss.Center).Render(fiat)

	explorer := subtleStyle.Render("No explorer link")
	if link, ok := hdr.Explorer.Get(); ok {
		explorer = subtleStyle.Render(fitWidth(link.Href, contentWidth))
	}

	uiBlock := lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render(title),
		"",
		identity,
		"",
		fiat,
		"",
		renderButtons(hdr.Buttons),
		explorer,
	)
	if chart := m.viewFiatHistory(contentWidth); chart != "" {
		uiBlock = lipgloss.JoinVertical(lipgloss.Center, uiBlock, "", chart)
	}
	content := boxStyle.Width(targetWidth).Align(lipgloss.Center).Render(uiBlock)

	// Footer
	line1 := "c:copy • o:explorer • n:new tx • r:refresh • ?:help • q:quit"
	if len(safes) > 1 {
		line1 = "Tab:cycle • " + line1
	}
	line2 := fmt.Sprintf("s:chain prefix • u:currency (%s) • v%s", m.store.Currency(), Version)

	var footer string
	if m.width > 0 {
		l1 := subtleStyle.Width(m.width).Align(lipgloss.Center).Render(line1)
		l2 := subtleStyle.Width(m.width).Align(lipgloss.Center).Render(line2)
		footer = lipgloss.JoinVertical(lipgloss.Center, l1, l2)
	} else {
		footer = subtleStyle.Render(line1 + "\n" + line2)
	}
	if m.statusMessage != "" {
		footer = lipgloss.JoinVertical(lipgloss.Center, infoStyle.Render(m.statusMessage), footer)
	}
	if m.lastError != "" {
		footer = lipgloss.JoinVertical(lipgloss.Center, errStyle.Render(fitWidth(m.lastError, m.width)), footer)
	}

	// Top bar
	updated := "Last updated: never"
	if !m.lastUpdate.IsZero() {
		updated = fmt.Sprintf("Last updated: %s", m.lastUpdate.Format("15:04:05"))
	}
	leftBlock := subtleStyle.Render(fmt.Sprintf(" %s", stateLabel(hdr.State)))
	rightBlock := subtleStyle.Render(updated + " ")
	gap := m.width - lipgloss.Width(leftBlock) - lipgloss.Width(rightBlock)
	if gap < 0 {
		gap = 0
	}
	topBar := lipgloss.JoinHorizontal(lipgloss.Top, leftBlock, strings.Repeat(" ", gap), rightBlock)

	h := m.height - 1
	if h < 0 {
		h = 0
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		topBar,
		lipgloss.Place(
			m.width,
			h,
			lipgloss.Center,
			lipgloss.Center,
			lipgloss.JoinVertical(lipgloss.Center, content, "", footer),
		),
	)
}

func stateLabel(s header.State) string {
	if s == header.StateLoading {
		return "Loading"
	}
	return "Ready"
}

// viewFiatHistory plots the fiat totals seen since the Safe or currency last
// changed. It needs at least two points and some vertical room.
func (m model) viewFiatHistory(width int) string {
	if len(m.fiatHistory) < 2 || m.height < 24 {
		return ""
	}
	graphWidth := width - 10
	if graphWidth < 10 {
		graphWidth = 10
	}
	graphHeight := m.height - 22
	if graphHeight > 8 {
		graphHeight = 8
	}
	return asciigraph.Plot(m.fiatHistory,
		asciigraph.Height(graphHeight),
		asciigraph.Width(graphWidth),
		asciigraph.Caption(fmt.Sprintf("Balance history (%s)", m.store.Currency())),
	)
}

func (m model) viewHelp() string {
	shortcuts := []string{
		"c: Copy address",
		"o: Open block explorer",
		"n: New transaction",
		"s: Toggle chain prefix on copy",
		"u: Cycle currency",
		"r: Refresh data",
		"Tab/l/Right: Next Safe",
		"S-Tab/h/Left: Previous Safe",
		"q: Quit",
		"?: Toggle Help",
	}

	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Help"), "", strings.Join(shortcuts, "\n")))
	footer := subtleStyle.Render("Press '?' or 'esc' to close")

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, content, "", footer),
	)
}
