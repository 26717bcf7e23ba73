package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnt/empyreal/transport"
)

const (
	weth = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	usdc = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
)

type captured struct {
	method string
	path   string
	query  map[string]string
	body   map[string]interface{}
	apiKey string
}

// newTestClient serves every request with handler and records it
func newTestClient(t *testing.T, status int, response string) (*Client, *captured) {
	t.Helper()
	got := &captured{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.apiKey = r.Header.Get(transport.APIKeyHeader)
		got.query = map[string]string{}
		for k := range r.URL.Query() {
			got.query[k] = r.URL.Query().Get(k)
		}
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			dec := json.NewDecoder(strings.NewReader(string(raw)))
			dec.UseNumber()
			_ = dec.Decode(&got.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)

	c, err := New("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)
	return c, got
}

func TestTokenLookup(t *testing.T) {
	id := uuid.New()
	c, got := newTestClient(t, 200, `{"id":"`+id.String()+`","address":"`+weth+`","name":"Wrapped Ether","symbol":"WETH","decimals":18,"chainId":1}`)

	token, err := c.Token.Lookup(context.Background(), common.HexToAddress(strings.ToLower(weth)), 1)
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/v1/token/lookup", got.path)
	assert.Equal(t, weth, got.query["address"])
	assert.Equal(t, "1", got.query["chainId"])
	assert.Equal(t, "test-key", got.apiKey)

	assert.Equal(t, id, token.ID)
	assert.Equal(t, weth, token.Address.Hex())
	assert.Equal(t, 18, token.Decimals)
	assert.Equal(t, int64(1), token.ChainID)
}

func TestTokenLookupNotFound(t *testing.T) {
	c, _ := newTestClient(t, 400, `{"detail":"no such token"}`)

	_, err := c.Token.Lookup(context.Background(), common.HexToAddress(weth), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "no such token", apiErr.Detail)
}

func TestTokenTransfer(t *testing.T) {
	c, got := newTestClient(t, 200, `"0xdeadbeef"`)
	tokenID, walletID := uuid.New(), uuid.New()

	hash, err := c.Token.Transfer(context.Background(), tokenID, walletID, common.HexToAddress(usdc), big.NewInt(1500), nil)
	require.NoError(t, err)

	assert.Equal(t, "0xdeadbeef", hash)
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/v1/token/transfer", got.path)
	assert.Equal(t, "1500", got.query["amount"])
	assert.Equal(t, tokenID.String(), got.query["tokenId"])
	assert.Equal(t, walletID.String(), got.query["walletId"])
	assert.Equal(t, usdc, got.query["recipientAddress"])
	_, hasGas := got.query["gasPrice"]
	assert.False(t, hasGas)
}

func TestTokenApproveDefaultsToMaxApproval(t *testing.T) {
	c, got := newTestClient(t, 200, `{"transactionHash":"0xabc"}`)

	hash, err := c.Token.Approve(context.Background(), ApproveRequest{
		TokenID:  uuid.New(),
		WalletID: uuid.New(),
		Spender:  common.HexToAddress(weth),
		ChainID:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, "0xabc", hash)
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, MaxApproval().String(), got.body["amount"].(json.Number).String())
	assert.Equal(t, "0", got.body["priorityFee"].(json.Number).String())
	assert.Equal(t, weth, got.body["spender"])
}

func TestMaxApprovalIsFresh(t *testing.T) {
	a := MaxApproval()
	a.SetInt64(5)
	assert.Equal(t, "115792089237316195423570985008687907853269984665640564039457584007913129639935", MaxApproval().String())
}

func TestTokenBalanceOf(t *testing.T) {
	c, got := newTestClient(t, 200, `{"balance":"123456789012345678901234567890"}`)

	bal, err := c.Token.BalanceOf(context.Background(), common.HexToAddress(usdc), common.HexToAddress(weth), 1, Latest())
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678901234567890", bal.String())
	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "latest", got.body["block"])
	assert.Equal(t, usdc, got.body["tokenAddress"])
	assert.Equal(t, weth, got.body["ownerAddress"])

	c, got = newTestClient(t, 200, `{"balance":42}`)
	bal, err = c.Token.BalanceOf(context.Background(), common.HexToAddress(usdc), common.HexToAddress(weth), 1, AtBlock(19000000))
	require.NoError(t, err)
	assert.Equal(t, int64(42), bal.Int64())
	assert.Equal(t, "19000000", got.body["block"].(json.Number).String())
}

func TestTokenAllowance(t *testing.T) {
	c, got := newTestClient(t, 200, `{"allowance":1000}`)

	v, err := c.Token.Allowance(context.Background(), common.HexToAddress(usdc), common.HexToAddress(weth), common.HexToAddress(usdc), 1, AtBlock(7))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), v.Int64())
	assert.Equal(t, "7", got.query["block"])
	assert.Equal(t, "/v1/token/allowance", got.path)
}

func TestTokenTaxes(t *testing.T) {
	c, got := newTestClient(t, 200, `{"buyTax":0.05,"sellTax":0.1}`)

	taxes, err := c.Token.Taxes(context.Background(), common.HexToAddress(usdc), common.HexToAddress(weth), 1)
	require.NoError(t, err)
	assert.Equal(t, 0.05, taxes.BuyTax)
	assert.Equal(t, 0.1, taxes.SellTax)
	assert.Equal(t, "/v1/token/taxes", got.path)
	assert.Equal(t, weth, got.body["token1Address"])
}

func TestAppUpdateSendsOnlySetFields(t *testing.T) {
	c, got := newTestClient(t, 200, `{"updates":{"swapFee":10000}}`)

	fee := int64(10000)
	updates, err := c.App.Update(context.Background(), AppUpdate{SwapFee: &fee})
	require.NoError(t, err)
	assert.JSONEq(t, `{"swapFee":10000}`, string(updates))
	assert.Equal(t, http.MethodPut, got.method)
	assert.Len(t, got.body, 1)
}

func TestAppRotateAPIKey(t *testing.T) {
	for _, body := range []string{`"new-key"`, `{"apiKey":"new-key"}`} {
		c, got := newTestClient(t, 200, body)
		key, err := c.App.RotateAPIKey(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "new-key", key.Reveal())
		assert.Equal(t, "/v1/app/apikey", got.path)
	}
}

func TestInfraPing(t *testing.T) {
	c, got := newTestClient(t, 200, `{"message":"pong"}`)
	payload, err := c.Infra.Ping(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"pong"}`, string(payload))
	assert.Equal(t, "/v1/ping", got.path)
}

func TestWalletInfoWithPrivateKey(t *testing.T) {
	id := uuid.New()
	c, got := newTestClient(t, 200, `{"id":"`+id.String()+`","name":"hot","address":"`+weth+`","type":"pk","privateKey":"0x1234"}`)

	w, err := c.Wallet.Info(context.Background(), id, true)
	require.NoError(t, err)
	assert.Equal(t, "true", got.query["withPrivateKey"])
	assert.Equal(t, WalletPrivateKey, w.Type)
	assert.Equal(t, "0x1234", w.PrivateKey.Reveal())
	assert.Equal(t, "[redacted]", w.PrivateKey.String())
}

func TestWalletMakeWalletPaths(t *testing.T) {
	userID := uuid.New()
	resp := `{"id":"` + uuid.NewString() + `","name":"w","address":"` + weth + `","type":"mnemonic"}`

	c, got := newTestClient(t, 200, resp)
	_, err := c.Wallet.MakeWallet(context.Background(), userID, "w", "")
	require.NoError(t, err)
	assert.Equal(t, "/v1/wallets/mnemonic", got.path)
	assert.Equal(t, userID.String(), got.body["userId"])
	_, hasKey := got.body["privateKey"]
	assert.False(t, hasKey)

	c, got = newTestClient(t, 200, resp)
	_, err = c.Wallet.MakeWallet(context.Background(), userID, "w", Secret("0xkey"))
	require.NoError(t, err)
	assert.Equal(t, "/v1/wallets/pk", got.path)
	assert.Equal(t, "0xkey", got.body["privateKey"])
	assert.Equal(t, userID.String(), got.body["userId"])
}

func TestWalletListsTolerateEnvelope(t *testing.T) {
	item := `{"id":"` + uuid.NewString() + `","name":"w","address":"` + weth + `","type":"noncustodial"}`

	c, _ := newTestClient(t, 200, `[`+item+`]`)
	ws, err := c.Wallet.AppWallets(context.Background())
	require.NoError(t, err)
	assert.Len(t, ws, 1)

	c, got := newTestClient(t, 200, `{"wallets":[`+item+`,`+item+`]}`)
	ws, err = c.Wallet.UserWallets(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Len(t, ws, 2)
	assert.Equal(t, "/v1/wallets/user", got.path)
}

func TestWalletData(t *testing.T) {
	id := uuid.New()
	c, got := newTestClient(t, 200, `{"archived":true,"notes":{"label":"savings","rank":3}}`)

	data, err := c.Wallet.Data(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "/v1/wallets/data/"+id.String(), got.path)
	assert.True(t, data.Archived)
	assert.Equal(t, "savings", data.Notes["label"].String())
	n, ok := data.Notes["rank"].Int()
	assert.True(t, ok)
	assert.Equal(t, int64(3), n)

	c, got = newTestClient(t, 200, `{}`)
	require.NoError(t, c.Wallet.UpdateData(context.Background(), id, WalletData{Notes: map[string]Note{"rank": IntNote(4)}}))
	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, false, got.body["archived"])
	assert.Equal(t, "4", got.body["notes"].(map[string]interface{})["rank"].(json.Number).String())
}

func TestVaultBindings(t *testing.T) {
	tokenID := uuid.New()
	vaultID := uuid.New()

	c, got := newTestClient(t, 200, `{"id":"`+vaultID.String()+`"}`)
	id, err := c.Vault.MakeNewAppVault(context.Background(), tokenID, VaultBank, "UserFunds", "wrapped deposits")
	require.NoError(t, err)
	assert.Equal(t, vaultID, id)
	assert.Equal(t, "1", got.body["type"].(json.Number).String())
	assert.Equal(t, "UserFunds", got.body["vaultName"])

	c, _ = newTestClient(t, 200, `{"vaults":[{"appId":"`+uuid.NewString()+`","walletId":"`+uuid.NewString()+`","token":{"id":"`+tokenID.String()+`","address":"`+usdc+`","name":"USD Coin","symbol":"USDC","decimals":6,"chainId":1},"name":"v","description":"d","type":"vault","balance":10.5,"shares":2}]}`)
	vaults, err := c.Vault.All(context.Background())
	require.NoError(t, err)
	require.Len(t, vaults, 1)
	assert.Equal(t, VaultShared, vaults[0].Type)
	assert.Equal(t, 6, vaults[0].Token.Decimals)
}

func TestPriceLiquidity(t *testing.T) {
	c, got := newTestClient(t, 200, `{"balances":{"token0":{"amount":"5000000000000000000000","price":1.5},"token1":{"amount":2000000,"price":null}}}`)

	rec, err := c.Prices.Liquidity(context.Background(), common.HexToAddress(weth), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "5000000000000000000000", rec.Token0Balance.String())
	assert.Equal(t, int64(2000000), rec.Token1Balance.Int64())
	require.NotNil(t, rec.Token0Price)
	assert.Equal(t, 1.5, *rec.Token0Price)
	assert.Nil(t, rec.Token1Price)
	assert.Nil(t, got.body["blockNumber"])
}

func TestPriceLoadFeedQuery(t *testing.T) {
	c, got := newTestClient(t, 200, "interval,open\n")
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	body, err := c.Prices.LoadFeed(context.Background(), FeedRequest{
		PairAddress: common.HexToAddress(weth),
		UseToken0:   true,
		Start:       &start,
	})
	require.NoError(t, err)
	assert.Equal(t, "interval,open\n", string(body))
	assert.Equal(t, "/v1/price/", got.path)
	assert.Equal(t, "true", got.query["useToken0"])
	assert.Equal(t, "2024-01-02T03:04:05Z", got.query["startTime"])
	_, hasEnd := got.query["endTime"]
	assert.False(t, hasEnd)
}

func TestSwapSimulate(t *testing.T) {
	tokenID := uuid.New()
	c, got := newTestClient(t, 200, `{"token":{"id":"`+tokenID.String()+`","address":"`+usdc+`","name":"USD Coin","symbol":"USDC","decimals":6,"chainId":1},"amountOut":"2500000"}`)

	rec, err := c.Swap.Simulate(context.Background(), SwapSimulation{
		Dex:      "uniswap",
		Path:     []common.Address{common.HexToAddress(weth), common.HexToAddress(usdc)},
		AmountIn: big.NewInt(1000),
		Sender:   common.HexToAddress(weth),
		ChainID:  1,
		UseEth:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, "2500000", rec.AmountOut.String())
	assert.Equal(t, "USDC", rec.Token.Symbol)
	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "1000", got.body["amountIn"])
	assert.Equal(t, []interface{}{}, got.body["fees"])
}

func TestSwapIsNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"detail":"slow down"}`))
	}))
	defer server.Close()

	c, err := New("k", WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = c.Swap.Swap(context.Background(), SwapOrder{
		Dex:      "uniswap",
		Path:     []common.Address{common.HexToAddress(weth)},
		AmountIn: big.NewInt(1),
		WalletID: uuid.New(),
		Slippage: 0.01,
	})
	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.Equal(t, 1, calls)
}

func TestSwapReportsMissingHash(t *testing.T) {
	body := `{"blockNumber":19000000,"status":1}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	c, err := New("k", WithBaseURL(server.URL))
	require.NoError(t, err)
	order := SwapOrder{
		Dex:      "uniswap",
		Path:     []common.Address{common.HexToAddress(weth)},
		AmountIn: big.NewInt(1),
		WalletID: uuid.New(),
		Slippage: 0.01,
	}

	res, err := c.Swap.Swap(context.Background(), order)
	require.NoError(t, err)
	assert.False(t, res.HasHash)
	assert.Empty(t, res.TxHash)
	assert.JSONEq(t, body, string(res.Raw))

	body = `{"transactionHash":"0xcc"}`
	res, err = c.Swap.Swap(context.Background(), order)
	require.NoError(t, err)
	assert.True(t, res.HasHash)
	assert.Equal(t, "0xcc", res.TxHash)
}
