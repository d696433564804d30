package header

import "safehdr/pkg/models"

type ButtonKind string

const (
	ButtonQR             ButtonKind = "qr"
	ButtonCopy           ButtonKind = "copy"
	ButtonExplorer       ButtonKind = "explorer"
	ButtonNewTransaction ButtonKind = "new_transaction"
)

// ActionButton is a clickable header control. A disabled button ignores
// presses even when it has a handler.
type ActionButton struct {
	Kind     ButtonKind              `json:"kind" yaml:"kind"`
	Label    string                  `json:"label" yaml:"label"`
	Disabled bool                    `json:"disabled" yaml:"disabled"`
	Href     models.Optional[string] `json:"href" yaml:"href"`
	OnClick  func()                  `json:"-" yaml:"-"`
}

// Press runs the click handler and reports whether anything happened.
func (b ActionButton) Press() bool {
	if b.Disabled || b.OnClick == nil {
		return false
	}
	b.OnClick()
	return true
}

// Inert reports whether pressing the button would do nothing.
func (b ActionButton) Inert() bool {
	return b.Disabled || b.OnClick == nil
}
