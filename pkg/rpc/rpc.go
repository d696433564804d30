package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"safehdr/pkg/config"
	"safehdr/pkg/models"
	"safehdr/pkg/utils"
)

var CoinGeckoBaseURL = "https://api.coingecko.com/api/v3"
var RequestTimeout = 10 * time.Second

const safeABIJSON = `[
	{"inputs":[],"name":"getThreshold","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"getOwners","outputs":[{"internalType":"address[]","name":"","type":"address[]"}],"stateMutability":"view","type":"function"}
]`

// SafeABI covers the read-only Safe calls the header needs.
var SafeABI = mustParseABI(safeABIJSON)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

// balanceOf(address)
var balanceOfSelector = []byte{0x70, 0xa0, 0x82, 0x31}

// FetchSafeInfo reads threshold and owners of a Safe, trying each RPC in turn.
func FetchSafeInfo(ctx context.Context, rpcURLs []string, address string) (models.SafeOnChain, error) {
	if !utils.IsCanonicalAddress(address) {
		return models.SafeOnChain{}, fmt.Errorf("invalid safe address %q", address)
	}
	safe := common.HexToAddress(address)

	var errs []error
	for _, rpcURL := range rpcURLs {
		cctx, cancel := context.WithTimeout(ctx, RequestTimeout)
		client, err := ethclient.DialContext(cctx, rpcURL)
		if err != nil {
			cancel()
			errs = append(errs, fmt.Errorf("%s: %w", rpcURL, err))
			continue
		}
		info, err := callSafe(cctx, client, safe)
		client.Close()
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rpcURL, err))
			continue
		}
		return info, nil
	}
	if len(errs) == 0 {
		return models.SafeOnChain{}, fmt.Errorf("no RPC URLs configured")
	}
	return models.SafeOnChain{}, errors.Join(errs...)
}

func callSafe(ctx context.Context, client *ethclient.Client, safe common.Address) (models.SafeOnChain, error) {
	out, err := callMethod(ctx, client, safe, "getThreshold")
	if err != nil {
		return models.SafeOnChain{}, err
	}
	threshold, ok := out[0].(*big.Int)
	if !ok {
		return models.SafeOnChain{}, fmt.Errorf("getThreshold: unexpected type %T", out[0])
	}

	out, err = callMethod(ctx, client, safe, "getOwners")
	if err != nil {
		return models.SafeOnChain{}, err
	}
	ownerAddrs, ok := out[0].([]common.Address)
	if !ok {
		return models.SafeOnChain{}, fmt.Errorf("getOwners: unexpected type %T", out[0])
	}
	owners := make([]string, 0, len(ownerAddrs))
	for _, o := range ownerAddrs {
		owners = append(owners, o.Hex())
	}

	return models.SafeOnChain{
		Address:   safe.Hex(),
		Threshold: int(threshold.Int64()),
		Owners:    owners,
	}, nil
}

func callMethod(ctx context.Context, client *ethclient.Client, to common.Address, method string) ([]interface{}, error) {
	data, err := SafeABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("%s: pack: %w", method, err)
	}
	result, err := client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	out, err := SafeABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("%s: unpack: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: empty result", method)
	}
	return out, nil
}

// FetchHoldings returns the native and token balances of address on chain.
// An RPC that fails any call is skipped in favour of the next one.
func FetchHoldings(ctx context.Context, chain config.ChainConfig, address string) (models.Holdings, error) {
	account := common.HexToAddress(address)

	var errs []error
	for _, rpcURL := range chain.RPCURLs {
		cctx, cancel := context.WithTimeout(ctx, RequestTimeout)
		client, err := ethclient.DialContext(cctx, rpcURL)
		if err != nil {
			cancel()
			errs = append(errs, fmt.Errorf("%s: %w", rpcURL, err))
			continue
		}
		h, err := fetchHoldings(cctx, client, chain, account)
		client.Close()
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rpcURL, err))
			continue
		}
		return h, nil
	}
	if len(errs) == 0 {
		return models.Holdings{}, fmt.Errorf("chain %s has no RPC URLs", chain.Name)
	}
	return models.Holdings{}, errors.Join(errs...)
}

func fetchHoldings(ctx context.Context, client *ethclient.Client, chain config.ChainConfig, account common.Address) (models.Holdings, error) {
	wei, err := client.BalanceAt(ctx, account, nil)
	if err != nil {
		return models.Holdings{}, err
	}
	h := models.Holdings{
		Native: decimal.NewFromBigInt(wei, -18),
		Tokens: make(map[string]decimal.Decimal),
	}
	for _, token := range chain.Tokens {
		bal, err := fetchTokenBalance(ctx, client, token, account)
		if err != nil {
			return models.Holdings{}, fmt.Errorf("token %s: %w", token.Symbol, err)
		}
		h.Tokens[token.Symbol] = bal
	}
	return h, nil
}

func fetchTokenBalance(ctx context.Context, client *ethclient.Client, token config.TokenConfig, account common.Address) (decimal.Decimal, error) {
	data := make([]byte, 4+32)
	copy(data[0:4], balanceOfSelector)
	copy(data[4+12:], account.Bytes())
	tokenAddr := common.HexToAddress(token.Address)
	result, err := client.CallContract(ctx, ethereum.CallMsg{To: &tokenAddr, Data: data}, nil)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(new(big.Int).SetBytes(result), -int32(token.Decimals)), nil
}

// FetchPrices returns the price of each CoinGecko id in the given fiat currency.
// Ids CoinGecko does not know are missing from the result.
func FetchPrices(ctx context.Context, coinIDs []string, currency string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal)
	if len(coinIDs) == 0 {
		return prices, nil
	}
	vs := strings.ToLower(currency)

	q := url.Values{}
	q.Set("ids", strings.Join(coinIDs, ","))
	q.Set("vs_currencies", vs)
	endpoint := fmt.Sprintf("%s/simple/price?%s", CoinGeckoBaseURL, q.Encode())

	cctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(cctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price API returned %s", resp.Status)
	}

	var result map[string]map[string]decimal.Decimal
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode prices: %w", err)
	}
	for id, byCurrency := range result {
		if p, ok := byCurrency[vs]; ok {
			prices[id] = p
		}
	}
	return prices, nil
}

// CheckChainID asks rpcURL for its chain id.
func CheckChainID(ctx context.Context, rpcURL string) (int64, error) {
	cctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()
	client, err := ethclient.DialContext(cctx, rpcURL)
	if err != nil {
		return 0, err
	}
	defer client.Close()
	id, err := client.ChainID(cctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get ChainID: %w", err)
	}
	return id.Int64(), nil
}
