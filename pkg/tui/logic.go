package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/shopspring/decimal"

	"safehdr/pkg/header"
	"safehdr/pkg/models"
)

// skeleton is drawn in place of a label that is still loading.
const skeleton = "░░░░░░░░"

// recordFiat appends a fiat total to the chart history. Totals that do not
// parse are skipped; the history keeps the last maxHistory points.
func recordFiat(history []float64, total string) []float64 {
	if total == "" {
		return history
	}
	d, err := decimal.NewFromString(total)
	if err != nil {
		return history
	}
	f, _ := d.Float64()
	history = append(history, f)
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	return history
}

// badgeText renders the icon overlay: threshold over owner count.
func badgeText(icon models.IconState) string {
	if icon.Status == models.IconLoading {
		return ""
	}
	threshold := "?"
	if t, ok := icon.Threshold.Get(); ok {
		threshold = fmt.Sprint(t)
	}
	return fmt.Sprintf("%s/%d", threshold, icon.OwnerCount)
}

func labelText(l models.Label) string {
	if l.Loading {
		return skeleton
	}
	return l.Text
}

// fitWidth truncates s to width cells. A non-positive width leaves s alone.
func fitWidth(s string, width int) string {
	if width <= 0 {
		return s
	}
	return truncate.StringWithTail(s, uint(width), "...")
}

var buttonKeys = map[header.ButtonKind]string{
	header.ButtonQR:             "",
	header.ButtonCopy:           "c",
	header.ButtonExplorer:       "o",
	header.ButtonNewTransaction: "n",
}

var buttonCaptions = map[header.ButtonKind]string{
	header.ButtonQR:             "QR",
	header.ButtonCopy:           "Copy",
	header.ButtonExplorer:       "Explorer",
	header.ButtonNewTransaction: "New tx",
}

// buttonCaption is the short text drawn inside a header button.
func buttonCaption(b header.ActionButton) string {
	caption := buttonCaptions[b.Kind]
	if caption == "" {
		caption = b.Label
	}
	if key := buttonKeys[b.Kind]; key != "" && !b.Inert() {
		caption = fmt.Sprintf("%s (%s)", caption, key)
	}
	return caption
}

func renderButtons(buttons []header.ActionButton) string {
	parts := make([]string, 0, len(buttons))
	for _, b := range buttons {
		style := buttonStyle
		switch {
		case b.Disabled:
			style = disabledButtonStyle
		case b.Inert():
			style = inertButtonStyle
		}
		parts = append(parts, style.Render(buttonCaption(b)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}
