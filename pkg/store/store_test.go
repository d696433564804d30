package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safehdr/pkg/config"
)

func testConfig() config.Config {
	return config.Config{
		Safes: []config.SafeConfig{
			{Address: "0x1111222233334444555566667777888899990000", Name: "Main", Chain: "Ethereum"},
			{Address: "0x2222222233334444555566667777888899990000", Name: "Ops", Chain: "Gnosis"},
			{Address: "0x3333222233334444555566667777888899990000", Name: "Lost", Chain: "Nowhere"},
		},
		Chains: []config.ChainConfig{
			{Name: "Ethereum", ShortName: "eth", RPCURLs: []string{"http://eth"}, BlockExplorerURITemplate: "https://etherscan.io/address/{{address}}"},
			{Name: "Gnosis", ShortName: "gno", RPCURLs: []string{"http://gno"}},
		},
		SelectedSafe: "0x2222222233334444555566667777888899990000",
		Currency:     "eur",
		Settings:     config.Settings{ShortName: config.ShortNameSettings{Copy: true}},
	}
}

func TestNew(t *testing.T) {
	s := New(testConfig(), "", nil)
	assert.Equal(t, "EUR", s.Currency())
	assert.Equal(t, 1, s.ActiveIndex())

	bad := testConfig()
	bad.Currency = "nope"
	assert.Equal(t, "USD", New(bad, "", nil).Currency())
}

func TestActiveChain(t *testing.T) {
	s := New(testConfig(), "", nil)

	chain, ok := s.ActiveChain().Get()
	require.True(t, ok)
	assert.Equal(t, "gno", chain.ShortName)

	s.SelectSafe(0)
	chain, ok = s.ActiveChain().Get()
	require.True(t, ok)
	assert.Equal(t, "https://etherscan.io/address/{{address}}", chain.BlockExplorerURITemplate)

	s.SelectSafe(2)
	assert.False(t, s.ActiveChain().IsSet())

	s.SelectSafe(-1)
	assert.Equal(t, 2, s.ActiveIndex())
	s.SelectSafe(3)
	assert.Equal(t, 0, s.ActiveIndex())
}

func TestActiveChain_NoSafes(t *testing.T) {
	s := New(config.Config{Currency: "USD"}, "", nil)
	_, ok := s.ActiveSafe()
	assert.False(t, ok)
	assert.False(t, s.ActiveChain().IsSet())
	s.SelectSafe(1)
}

func TestCurrency(t *testing.T) {
	s := New(testConfig(), "", nil)

	assert.Error(t, s.SetCurrency("XXXX"))
	assert.Equal(t, "EUR", s.Currency())

	require.NoError(t, s.SetCurrency("usd"))
	assert.Equal(t, "USD", s.Currency())
	assert.Equal(t, "EUR", s.CycleCurrency())

	last := SupportedCurrencies[len(SupportedCurrencies)-1]
	require.NoError(t, s.SetCurrency(last))
	assert.Equal(t, SupportedCurrencies[0], s.CycleCurrency())
}

func TestSettingsAndPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	s := New(testConfig(), path, nil)

	assert.True(t, s.Settings().ShortName.Copy)
	assert.False(t, s.ToggleShortNameCopy())
	assert.False(t, s.Settings().ShortName.Copy)

	cfg := s.Config()
	cfg.Safes = cfg.Safes[:2]
	good := New(cfg, path, nil)
	require.NoError(t, good.Persist())

	loaded, err := config.LoadConfigFromFile(path)
	require.NoError(t, err)
	assert.False(t, loaded.Settings.ShortName.Copy)
	assert.Equal(t, "EUR", loaded.Currency)
	assert.Equal(t, 1, loaded.SelectedIndex())

	// The third safe points at an unknown chain, which SaveConfig rejects.
	assert.Error(t, s.Persist())
}
