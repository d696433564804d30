package header

import (
	"go.uber.org/zap"

	"safehdr/pkg/format"
	"safehdr/pkg/metrics"
	"safehdr/pkg/models"
)

// SafeInfoProvider reports the active Safe.
type SafeInfoProvider interface {
	SafeInfo() models.SafeInfo
}

// BalanceProvider reports the aggregate value of the active Safe.
type BalanceProvider interface {
	Balances() models.BalancesView
}

// CurrencySelector reports the selected fiat currency code.
type CurrencySelector interface {
	Currency() string
}

// ChainRegistry reports the chain of the active Safe, if resolved.
type ChainRegistry interface {
	ActiveChain() models.Optional[models.Chain]
}

// SettingsStore reports the user settings.
type SettingsStore interface {
	Settings() models.Settings
}

// Clipboard writes text to the system clipboard.
type Clipboard interface {
	WriteText(text string) error
}

// Opener opens an external URL in a new context (browser tab or window).
type Opener interface {
	Open(url string) error
}

// Sources are the read-only inputs of the header.
type Sources struct {
	Safe     SafeInfoProvider
	Balances BalanceProvider
	Currency CurrencySelector
	Chains   ChainRegistry
	Settings SettingsStore
}

type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
)

// HeaderDisplayModel is everything the header renders for one set of inputs.
type HeaderDisplayModel struct {
	State        State                                `json:"state" yaml:"state"`
	Icon         models.IconState                     `json:"icon" yaml:"icon"`
	AddressLabel models.Label                         `json:"address_label" yaml:"address_label"`
	FiatLabel    models.Label                         `json:"fiat_label" yaml:"fiat_label"`
	Explorer     models.Optional[models.ExplorerLink] `json:"explorer" yaml:"explorer"`
	CopyText     string                               `json:"copy_text" yaml:"copy_text"`
	Buttons      []ActionButton                       `json:"buttons" yaml:"buttons"`
}

// Button returns the button of the given kind.
func (m HeaderDisplayModel) Button(kind ButtonKind) (ActionButton, bool) {
	for _, b := range m.Buttons {
		if b.Kind == kind {
			return b, true
		}
	}
	return ActionButton{}, false
}

// Builder turns the current inputs into a HeaderDisplayModel. It keeps no
// state between builds apart from the fiat memo.
type Builder struct {
	src       Sources
	fiat      *format.FiatFormatter
	clipboard Clipboard
	opener    Opener
	newTx     func()
	logger    *zap.Logger
}

type Option func(*Builder)

func WithFiatFormatter(f *format.FiatFormatter) Option {
	return func(b *Builder) { b.fiat = f }
}

func WithClipboard(c Clipboard) Option {
	return func(b *Builder) { b.clipboard = c }
}

func WithOpener(o Opener) Option {
	return func(b *Builder) { b.opener = o }
}

// WithNewTransaction sets the handler of the "new transaction" button.
func WithNewTransaction(fn func()) Option {
	return func(b *Builder) { b.newTx = fn }
}

func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

func NewBuilder(src Sources, opts ...Option) *Builder {
	b := &Builder{src: src, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	if b.fiat == nil {
		b.fiat = format.NewFiatFormatter(format.DefaultLocale, format.DefaultMemoSize)
	}
	return b
}

func (b *Builder) Build() HeaderDisplayModel {
	safe := b.src.Safe.SafeInfo()
	chain := b.src.Chains.ActiveChain()
	settings := b.src.Settings.Settings()

	m := HeaderDisplayModel{
		State:        StateReady,
		Icon:         DeriveIconState(safe),
		AddressLabel: DeriveAddressLabel(safe),
		FiatLabel:    DeriveFiatLabel(b.fiat, safe.Loading, b.src.Balances.Balances(), b.src.Currency.Currency()),
		Explorer:     BuildExplorerHref(safe.Address, chain),
		CopyText:     BuildCopyText(safe.Address, settings, chain),
	}
	if safe.Loading {
		m.State = StateLoading
	}
	if chain.IsSet() && safe.Address != "" && !m.Explorer.IsSet() {
		metrics.ExplorerLinkMissing.Inc()
	}
	metrics.HeaderBuilds.WithLabelValues(string(m.State)).Inc()

	m.Buttons = b.buttons(m)
	return m
}

func (b *Builder) buttons(m HeaderDisplayModel) []ActionButton {
	text := m.CopyText
	copyBtn := ActionButton{
		Kind:    ButtonCopy,
		Label:   "Copy address",
		OnClick: func() { PerformCopy(b.clipboard, text, b.logger) },
	}

	explorer := ActionButton{Kind: ButtonExplorer, Label: "Open block explorer"}
	if link, ok := m.Explorer.Get(); ok {
		explorer.Href = models.Some(link.Href)
		if b.opener != nil {
			href := link.Href
			explorer.OnClick = func() { b.open(href) }
		}
	}

	return []ActionButton{
		// QR display has no behaviour yet and stays disabled.
		{Kind: ButtonQR, Label: "Address QR code", Disabled: true},
		copyBtn,
		explorer,
		{Kind: ButtonNewTransaction, Label: "New transaction", OnClick: b.newTx},
	}
}

// Copy writes the copy text for the current inputs to the clipboard without waiting.
func (b *Builder) Copy() {
	safe := b.src.Safe.SafeInfo()
	text := BuildCopyText(safe.Address, b.src.Settings.Settings(), b.src.Chains.ActiveChain())
	PerformCopy(b.clipboard, text, b.logger)
}

// NewTransaction triggers the delegated new transaction flow, if any.
func (b *Builder) NewTransaction() {
	if b.newTx != nil {
		b.newTx()
	}
}

func (b *Builder) open(href string) {
	if err := b.opener.Open(href); err != nil {
		b.logger.Warn("failed to open explorer link", zap.String("href", href), zap.Error(err))
	}
}

// PerformCopy writes text to the clipboard in the background. Failures are
// logged and counted, never returned.
func PerformCopy(c Clipboard, text string, logger *zap.Logger) {
	if c == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	go func() {
		if err := c.WriteText(text); err != nil {
			metrics.CopyRequests.WithLabelValues("failed").Inc()
			logger.Debug("clipboard write failed", zap.Error(err))
			return
		}
		metrics.CopyRequests.WithLabelValues("ok").Inc()
	}()
}
