package header

import (
	"net/url"
	"strings"

	"safehdr/pkg/format"
	"safehdr/pkg/models"
	"safehdr/pkg/utils"
)

// EmptyAddress is shown when a loaded Safe has no address.
const EmptyAddress = "..."

// ExplorerTitle is the hover text of the explorer link.
const ExplorerTitle = "View on explorer"

// Address placeholders accepted in explorer templates, longest first.
var addressPlaceholders = []string{"{{address}}", "{address}"}

// DeriveAddressLabel returns the shortened Safe address, or the loading
// skeleton while Safe info is being fetched.
func DeriveAddressLabel(safe models.SafeInfo) models.Label {
	if safe.Loading {
		return models.LoadingLabel()
	}
	if safe.Address == "" {
		return models.TextLabel(EmptyAddress)
	}
	return models.TextLabel(utils.ShortenAddress(safe.Address))
}

// DeriveFiatLabel formats the fiat total unless the Safe is still loading.
// The total is formatted in the currency it was valued in, falling back to
// currency. A total that cannot be parsed is shown as EmptyAddress.
func DeriveFiatLabel(f *format.FiatFormatter, loading bool, balances models.BalancesView, currency string) models.Label {
	if loading {
		return models.LoadingLabel()
	}
	if balances.Currency != "" {
		currency = balances.Currency
	}
	var (
		s   string
		err error
	)
	if f != nil {
		s, err = f.Format(balances.FiatTotal, currency)
	} else {
		s, err = format.FormatFiat(balances.FiatTotal, currency, format.DefaultLocale)
	}
	if err != nil {
		return models.TextLabel(EmptyAddress)
	}
	return models.TextLabel(s)
}

// BuildCopyText returns the text placed on the clipboard: the address,
// prefixed with the chain short name when that setting is on.
func BuildCopyText(address string, settings models.Settings, chain models.Optional[models.Chain]) string {
	c, ok := chain.Get()
	if settings.ShortName.Copy && ok {
		return c.ShortName + ":" + address
	}
	return address
}

// BuildExplorerHref substitutes address into the chain's explorer template.
// Missing chain, empty address, a template without placeholder or a result
// that is not an absolute URL all yield no link.
func BuildExplorerHref(address string, chain models.Optional[models.Chain]) models.Optional[models.ExplorerLink] {
	c, ok := chain.Get()
	if !ok || address == "" {
		return models.None[models.ExplorerLink]()
	}

	tmpl := strings.TrimSpace(c.BlockExplorerURITemplate)
	href := ""
	for _, p := range addressPlaceholders {
		if strings.Contains(tmpl, p) {
			href = strings.ReplaceAll(tmpl, p, url.PathEscape(address))
			break
		}
	}
	if href == "" {
		return models.None[models.ExplorerLink]()
	}

	u, err := url.Parse(href)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return models.None[models.ExplorerLink]()
	}
	return models.Some(models.ExplorerLink{Href: href, Title: ExplorerTitle})
}

// DeriveIconState describes the identicon and threshold badge.
func DeriveIconState(safe models.SafeInfo) models.IconState {
	if safe.Loading {
		return models.LoadingIcon()
	}
	owners, _ := safe.Owners.Get()
	return models.ReadyIcon(safe.Address, safe.Threshold, len(owners))
}
