package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"safehdr/pkg/header"
	"safehdr/pkg/models"
)

func renderHeader(w io.Writer, m header.HeaderDisplayModel, output string) error {
	switch strings.ToLower(output) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		_, err := io.WriteString(w, headerText(m))
		return err
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", output)
	}
}

func labelOrLoading(l models.Label) string {
	if l.Loading {
		return "(loading)"
	}
	return l.Text
}

// headerText is the plain text rendering used by the header command.
func headerText(m header.HeaderDisplayModel) string {
	var sb strings.Builder

	identity := labelOrLoading(m.AddressLabel)
	if m.Icon.Status == models.IconReady {
		threshold := "?"
		if t, ok := m.Icon.Threshold.Get(); ok {
			threshold = fmt.Sprint(t)
		}
		identity = fmt.Sprintf("%s (%s/%d)", identity, threshold, m.Icon.OwnerCount)
	}
	fmt.Fprintf(&sb, "Safe:     %s\n", identity)
	fmt.Fprintf(&sb, "Balance:  %s\n", labelOrLoading(m.FiatLabel))
	fmt.Fprintf(&sb, "Copy:     %s\n", m.CopyText)
	if link, ok := m.Explorer.Get(); ok {
		fmt.Fprintf(&sb, "Explorer: %s\n", link.Href)
	} else {
		sb.WriteString("Explorer: -\n")
	}

	buttons := make([]string, 0, len(m.Buttons))
	for _, b := range m.Buttons {
		switch {
		case b.Disabled:
			buttons = append(buttons, fmt.Sprintf("[%s: disabled]", b.Label))
		case b.Inert():
			buttons = append(buttons, fmt.Sprintf("[%s: unavailable]", b.Label))
		default:
			buttons = append(buttons, fmt.Sprintf("[%s]", b.Label))
		}
	}
	fmt.Fprintf(&sb, "Actions:  %s\n", strings.Join(buttons, " "))
	return sb.String()
}
