package types

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/wnt/empyreal/client"
)

// ErrNetworkMismatch is returned when a token belongs to a different network than the protocol
var ErrNetworkMismatch = errors.New("token network does not match protocol network")

// ExchangeProtocol is one supported AMM on one network
type ExchangeProtocol interface {
	// Name is the identifier the API uses for the protocol
	Name() string
	Network() Network
	// WETH is the wrapped native token routes are quoted against
	WETH() common.Address

	Price(ctx context.Context, token common.Address) ([]DexRoute, error)
	PairInfo(ctx context.Context, pair common.Address) (*DexPair, error)
	Pairs(ctx context.Context, token *Token) ([]*DexPair, error)
	Taxes(ctx context.Context, token0 common.Address, token1 *common.Address) (*client.TaxesRecord, error)
	SimulateSwap(ctx context.Context, path []common.Address, amountIn *big.Int, sender common.Address, opts ...SwapOption) (TokenAmount, error)
	Swap(ctx context.Context, path []common.Address, from *Wallet, amountIn TokenAmount, slippage float64, opts ...SwapOption) (*client.SwapResult, error)
}

// ProtocolByName returns the protocol the API calls name on network
func ProtocolByName(name string, network Network) (ExchangeProtocol, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case uniswapV2Name, "uniswapv2":
		return NewUniswapV2(network), nil
	default:
		return nil, fmt.Errorf("exchange %s is not supported", name)
	}
}

type swapOptions struct {
	fees        []int64
	useEth      bool
	priorityFee *big.Int
	private     bool
}

// SwapOption customizes SimulateSwap and Swap
type SwapOption func(*swapOptions)

// WithFees sets per-hop pool fees, only meaningful for fee-tiered pools
func WithFees(fees ...int64) SwapOption {
	return func(o *swapOptions) { o.fees = fees }
}

// WithoutEth swaps through WETH instead of native ETH
func WithoutEth() SwapOption {
	return func(o *swapOptions) { o.useEth = false }
}

// WithSwapPriorityFee sets the priority fee in wei
func WithSwapPriorityFee(fee *big.Int) SwapOption {
	return func(o *swapOptions) { o.priorityFee = fee }
}

// Private submits the swap through a private mempool
func Private() SwapOption {
	return func(o *swapOptions) { o.private = true }
}

func newSwapOptions(opts []SwapOption) swapOptions {
	o := swapOptions{useEth: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

const (
	uniswapV2Name = "uniswap"
	mainnetWETH   = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
)

// UniswapV2 is a Uniswap-V2 style factory. The network is fixed at construction.
type UniswapV2 struct {
	network Network
}

// NewUniswapV2 returns the protocol bound to network
func NewUniswapV2(network Network) *UniswapV2 {
	return &UniswapV2{network: network}
}

func (u *UniswapV2) Name() string     { return uniswapV2Name }
func (u *UniswapV2) Network() Network { return u.network }

// TODO: map WETH per chain once a second network is supported.
func (u *UniswapV2) WETH() common.Address {
	return common.HexToAddress(mainnetWETH)
}

// Price returns every priced route from token to WETH and USDC
func (u *UniswapV2) Price(ctx context.Context, token common.Address) ([]DexRoute, error) {
	c, err := client.Require(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := c.Prices.Routes(ctx, token, u.network.ChainID())
	if err != nil {
		return nil, err
	}
	routes := make([]DexRoute, len(rows))
	for i, row := range rows {
		routes[i] = newDexRoute(row, u)
	}
	return routes, nil
}

// PriceOf is Price for a loaded token
func (u *UniswapV2) PriceOf(ctx context.Context, token *Token) ([]DexRoute, error) {
	return u.Price(ctx, token.Address)
}

// PairInfo loads the pair at address
func (u *UniswapV2) PairInfo(ctx context.Context, pair common.Address) (*DexPair, error) {
	c, err := client.Require(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := c.Prices.PairInfo(ctx, pair, u.network.ChainID())
	if err != nil {
		return nil, err
	}
	return newDexPair(*rec, u), nil
}

// Pairs lists every pair containing token on the protocol's network. A token
// loaded on another network is rejected with ErrNetworkMismatch.
func (u *UniswapV2) Pairs(ctx context.Context, token *Token) ([]*DexPair, error) {
	if token.ChainID != 0 && token.Network() != u.network {
		return nil, fmt.Errorf("%w: token %s is on %s, protocol on %s", ErrNetworkMismatch, token.Address.Hex(), token.Network(), u.network)
	}
	c, err := client.Require(ctx)
	if err != nil {
		return nil, err
	}
	recs, err := c.Prices.TokenPairs(ctx, token.Address, u.network.ChainID())
	if err != nil {
		return nil, err
	}
	pairs := make([]*DexPair, len(recs))
	for i := range recs {
		pairs[i] = newDexPair(recs[i], u)
	}
	return pairs, nil
}

// Taxes returns the buy and sell tax of token0 against token1, WETH when token1 is nil
func (u *UniswapV2) Taxes(ctx context.Context, token0 common.Address, token1 *common.Address) (*client.TaxesRecord, error) {
	quote := u.WETH()
	if token1 != nil {
		quote = *token1
	}
	c, err := client.Require(ctx)
	if err != nil {
		return nil, err
	}
	return c.Token.Taxes(ctx, token0, quote, u.network.ChainID())
}

// SimulateSwap estimates the output of swapping amountIn along path
func (u *UniswapV2) SimulateSwap(ctx context.Context, path []common.Address, amountIn *big.Int, sender common.Address, opts ...SwapOption) (TokenAmount, error) {
	o := newSwapOptions(opts)
	c, err := client.Require(ctx)
	if err != nil {
		return TokenAmount{}, err
	}
	rec, err := c.Swap.Simulate(ctx, client.SwapSimulation{
		Dex:      u.Name(),
		Path:     path,
		Fees:     o.fees,
		AmountIn: amountIn,
		Sender:   sender,
		ChainID:  u.network.ChainID(),
		UseEth:   o.useEth,
	})
	if err != nil {
		return TokenAmount{}, err
	}
	token := &Token{TokenRecord: rec.Token}
	return token.Amount(rec.AmountOut), nil
}

// Swap submits a swap of amountIn along path from a custodial wallet
func (u *UniswapV2) Swap(ctx context.Context, path []common.Address, from *Wallet, amountIn TokenAmount, slippage float64, opts ...SwapOption) (*client.SwapResult, error) {
	if from == nil {
		return nil, errors.New("swap requires a wallet")
	}
	if len(path) < 2 {
		return nil, errors.New("swap path needs at least two tokens")
	}
	o := newSwapOptions(opts)
	c, err := client.Require(ctx)
	if err != nil {
		return nil, err
	}
	return c.Swap.Swap(ctx, client.SwapOrder{
		Dex:         u.Name(),
		Path:        path,
		AmountIn:    amountIn.raw(),
		WalletID:    from.ID,
		Slippage:    slippage,
		PriorityFee: o.priorityFee,
		IsPrivate:   o.private,
		ChainID:     u.network.ChainID(),
		UseEth:      o.useEth,
		Fees:        o.fees,
	})
}

// DexRoute is one priced path from a token to WETH/USDC
type DexRoute struct {
	Path          []common.Address
	Fees          []int64
	PairAddresses []common.Address
	// EthPrice has 18 decimals, USDCPrice has 6
	EthPrice  TokenAmount
	USDCPrice TokenAmount
	// Factory is not owned by the route
	Factory ExchangeProtocol
	Network Network
}

const usdcDecimals = 6

func newDexRoute(row client.RouteRecord, factory ExchangeProtocol) DexRoute {
	return DexRoute{
		Path:          row.Path,
		Fees:          row.Fees,
		PairAddresses: row.PairAddresses,
		EthPrice:      priceAmount(row.EthPrice, DefaultDecimals),
		USDCPrice:     priceAmount(row.USDCPrice, usdcDecimals),
		Factory:       factory,
		Network:       factory.Network(),
	}
}

// priceAmount converts a float price to a raw integer at decimals, truncating
func priceAmount(price float64, decimals int) TokenAmount {
	raw := decimal.NewFromFloat(price).Shift(int32(decimals)).BigInt()
	return TokenAmount{Amount: raw, Decimals: decimals}
}

// Simulate estimates swapping amountIn along this route
func (r DexRoute) Simulate(ctx context.Context, amountIn *big.Int, sender common.Address, opts ...SwapOption) (TokenAmount, error) {
	if r.Factory == nil {
		return TokenAmount{}, errors.New("route has no exchange protocol")
	}
	opts = append([]SwapOption{WithFees(r.Fees...)}, opts...)
	return r.Factory.SimulateSwap(ctx, r.Path, amountIn, sender, opts...)
}

func (r DexRoute) String() string {
	return fmt.Sprintf("DexRoute %v eth_price=%s usdc_price=$%s", r.Path, r.EthPrice.Format(8), r.USDCPrice.Format(6))
}
