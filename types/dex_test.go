package types

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pairHex = "0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc"

func pairJSON() string {
	return `{"factoryAddress":"0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f",
		"token0":` + tokenJSON(uuid.NewString(), usdcHex, "USDC", 6) + `,
		"token1":` + tokenJSON(uuid.NewString(), wethHex, "WETH", 18) + `,
		"pairAddress":"` + pairHex + `","index":1,"feePercentage":null,"chainId":1,
		"blockNumber":10008355,"transactionHash":"0xd07cbde8"}`
}

func TestProtocolByName(t *testing.T) {
	p, err := ProtocolByName("Uniswap", Ethereum)
	require.NoError(t, err)
	assert.Equal(t, "uniswap", p.Name())
	assert.Equal(t, Ethereum, p.Network())
	assert.Equal(t, wethHex, p.WETH().Hex())

	_, err = ProtocolByName("sushiswap", Ethereum)
	assert.Error(t, err)
}

func TestUniswapV2NetworkIsPerInstance(t *testing.T) {
	a := NewUniswapV2(Ethereum)
	b := NewUniswapV2(Network(42161))
	assert.Equal(t, Ethereum, a.Network())
	assert.Equal(t, Network(42161), b.Network())
	assert.Equal(t, "chain 42161", b.Network().String())
}

func TestPriceBuildsRoutes(t *testing.T) {
	ctx, api := newSession(t, map[string]reply{
		"GET /v1/dex/routes": ok(`{"routes":[{"path":["` + usdcHex + `","` + wethHex + `"],"pair_addresses":["` + pairHex + `"],"eth_price":0.0003125,"usdc_price":1.000215}]}`),
	})
	u := NewUniswapV2(Ethereum)

	routes, err := u.Price(ctx, common.HexToAddress(usdcHex))
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, usdcHex, api.last(t).Query["tokenAddress"])

	r := routes[0]
	assert.Equal(t, "312500000000000", r.EthPrice.Amount.String())
	assert.Equal(t, 18, r.EthPrice.Decimals)
	assert.Equal(t, "1000215", r.USDCPrice.Amount.String())
	assert.Equal(t, 6, r.USDCPrice.Decimals)
	assert.Same(t, u, r.Factory)
	assert.Equal(t, Ethereum, r.Network)
}

func TestRouteSimulateUsesRouteFees(t *testing.T) {
	tokenID := uuid.NewString()
	ctx, api := newSession(t, map[string]reply{
		"PUT /v1/dex/simulate": ok(`{"token":` + tokenJSON(tokenID, wethHex, "WETH", 18) + `,"amountOut":"1500000000000000000"}`),
	})
	route := DexRoute{
		Path:    []common.Address{common.HexToAddress(usdcHex), common.HexToAddress(wethHex)},
		Fees:    []int64{3000},
		Factory: NewUniswapV2(Ethereum),
		Network: Ethereum,
	}

	out, err := route.Simulate(ctx, big.NewInt(1_000_000), common.HexToAddress(wethHex), WithoutEth())
	require.NoError(t, err)
	assert.Equal(t, "1.5", out.Format(4).String())
	assert.Equal(t, "WETH", out.Token.Symbol)

	body := api.last(t).Body
	assert.Equal(t, []interface{}{float64(3000)}, body["fees"])
	assert.Equal(t, false, body["useEth"])
	assert.Equal(t, "uniswap", body["dex"])
	assert.Equal(t, "1000000", body["amountIn"])
}

func TestSwapOptions(t *testing.T) {
	ctx, api := newSession(t, map[string]reply{
		"POST /v1/dex/swap": ok(`{"transactionHash":"0xcc","status":1}`),
	})
	u := NewUniswapV2(Ethereum)
	path := []common.Address{common.HexToAddress(wethHex), common.HexToAddress(usdcHex)}

	res, err := u.Swap(ctx, path, testWallet(), NewAmount(big.NewInt(10), nil), 0.5, Private(), WithSwapPriorityFee(big.NewInt(2)))
	require.NoError(t, err)
	assert.Equal(t, "0xcc", res.TxHash)
	assert.True(t, res.HasHash)
	assert.JSONEq(t, `{"transactionHash":"0xcc","status":1}`, string(res.Raw))

	body := api.last(t).Body
	assert.Equal(t, true, body["isPrivate"])
	assert.Equal(t, true, body["useEth"])
	assert.Equal(t, float64(2), body["priorityFee"])
	assert.Equal(t, 0.5, body["slippage"])

	_, err = u.Swap(ctx, path[:1], testWallet(), NewAmount(big.NewInt(10), nil), 0.5)
	assert.Error(t, err)
	assert.Equal(t, 1, api.count())
}

func TestPairsAndTaxes(t *testing.T) {
	ctx, api := newSession(t, map[string]reply{
		"GET /v1/dex/pairs":   ok(`{"pairs":[` + pairJSON() + `]}`),
		"GET /v1/dex/pair":    ok(pairJSON()),
		"PUT /v1/token/taxes": ok(`{"buyTax":0,"sellTax":0.03}`),
	})
	u := NewUniswapV2(Ethereum)

	pairs, err := u.Pairs(ctx, testToken())
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	p := pairs[0]
	assert.Equal(t, "DexPair: USDC, WETH", p.String())
	assert.Nil(t, p.Fee)
	assert.Equal(t, uint64(10008355), p.BlockNumber)
	assert.Same(t, u, p.Factory)

	single, err := u.PairInfo(ctx, common.HexToAddress(pairHex))
	require.NoError(t, err)
	assert.Equal(t, pairHex, single.Address.Hex())

	taxes, err := p.Taxes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.03, taxes.SellTax)
	assert.Equal(t, wethHex, api.last(t).Body["token1Address"])

	_, err = u.Taxes(ctx, common.HexToAddress(usdcHex), nil)
	require.NoError(t, err)
	assert.Equal(t, wethHex, api.last(t).Body["token1Address"])
}

func TestPairsRejectsTokenFromOtherNetwork(t *testing.T) {
	ctx, api := newSession(t, map[string]reply{
		"GET /v1/dex/pairs": ok(`{"pairs":[]}`),
	})
	arbitrum := Network(42161)
	token := testToken()
	token.ChainID = arbitrum.ChainID()

	_, err := NewUniswapV2(Ethereum).Pairs(ctx, token)
	assert.ErrorIs(t, err, ErrNetworkMismatch)
	assert.Equal(t, 0, api.count())

	pairs, err := NewUniswapV2(arbitrum).Pairs(ctx, token)
	require.NoError(t, err)
	assert.Empty(t, pairs)
	assert.Equal(t, 1, api.count())
}

func TestLiquidityValue(t *testing.T) {
	ctx, _ := newSession(t, map[string]reply{
		"GET /v1/dex/pair":      ok(pairJSON()),
		"PUT /v1/dex/liquidity": ok(`{"balances":{"token0":{"amount":"25000000000","price":1.0},"token1":{"amount":"8000000000000000000","price":null}}}`),
	})
	pair, err := NewUniswapV2(Ethereum).PairInfo(ctx, common.HexToAddress(pairHex))
	require.NoError(t, err)

	liq, err := pair.Liquidity(ctx, nil)
	require.NoError(t, err)
	assert.Same(t, pair, liq.Pair)

	v0, ok0 := liq.Token0Value()
	assert.True(t, ok0)
	assert.Equal(t, "25000", v0.String())

	_, ok1 := liq.Token1Value()
	assert.False(t, ok1)

	total, valued := liq.Value()
	assert.True(t, valued)
	assert.Equal(t, "50000.00", total.StringFixed(2))
	assert.Contains(t, liq.String(), "$50000.00")
}

func TestLoadLiquidityKeepsOrder(t *testing.T) {
	ctx, api := newSession(t, map[string]reply{
		"PUT /v1/dex/liquidity": ok(`{"balances":{"token0":{"amount":1,"price":2},"token1":{"amount":3,"price":4}}}`),
	})
	pairs := make([]*DexPair, 20)
	for i := range pairs {
		pairs[i] = &DexPair{Token0: testToken(), Token1: testToken(), Network: Ethereum}
	}

	out, err := LoadLiquidity(ctx, pairs, nil)
	require.NoError(t, err)
	require.Len(t, out, len(pairs))
	for i := range pairs {
		assert.Same(t, pairs[i], out[i].Pair)
	}
	assert.Equal(t, len(pairs), api.count())
}
