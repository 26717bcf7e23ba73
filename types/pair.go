package types

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/wnt/empyreal/client"
	"golang.org/x/sync/errgroup"
)

var _ ExchangeProtocol = (*UniswapV2)(nil)

// DexPair is an AMM pool of two tokens
type DexPair struct {
	FactoryAddress  common.Address
	Token0          *Token
	Token1          *Token
	Address         common.Address
	Index           int64
	Fee             *float64
	Network         Network
	BlockNumber     uint64
	TransactionHash string
	// Factory is the protocol the pair was loaded through; the pair does not own it
	Factory ExchangeProtocol `json:"-"`
}

func newDexPair(rec client.PairRecord, factory ExchangeProtocol) *DexPair {
	return &DexPair{
		FactoryAddress:  rec.FactoryAddress,
		Token0:          &Token{TokenRecord: rec.Token0},
		Token1:          &Token{TokenRecord: rec.Token1},
		Address:         rec.PairAddress,
		Index:           rec.Index,
		Fee:             rec.FeePercentage,
		Network:         Network(rec.ChainID),
		BlockNumber:     rec.BlockNumber,
		TransactionHash: rec.TransactionHash,
		Factory:         factory,
	}
}

// Liquidity returns the reserves of the pair, at block when given
func (p *DexPair) Liquidity(ctx context.Context, block *uint64) (*Liquidity, error) {
	c, err := client.Require(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := c.Prices.Liquidity(ctx, p.Address, p.Network.ChainID(), block)
	if err != nil {
		return nil, err
	}
	return &Liquidity{
		Token0Balance: rec.Token0Balance,
		Token0Price:   rec.Token0Price,
		Token1Balance: rec.Token1Balance,
		Token1Price:   rec.Token1Price,
		Pair:          p,
	}, nil
}

// Taxes returns the buy and sell tax of token0 against token1
func (p *DexPair) Taxes(ctx context.Context) (*client.TaxesRecord, error) {
	if p.Factory == nil {
		return nil, errors.New("pair has no exchange protocol")
	}
	quote := p.Token1.Address
	return p.Factory.Taxes(ctx, p.Token0.Address, &quote)
}

type historyOptions struct {
	useToken0 bool
	start     *time.Time
	end       *time.Time
}

// HistoryOption narrows SwapHistory
type HistoryOption func(*historyOptions)

// WithToken1Prices quotes the feed in token1 instead of token0
func WithToken1Prices() HistoryOption {
	return func(o *historyOptions) { o.useToken0 = false }
}

// Since asks only for intervals starting at or after t
func Since(t time.Time) HistoryOption {
	return func(o *historyOptions) { o.start = &t }
}

// Until asks only for intervals starting at or before t
func Until(t time.Time) HistoryOption {
	return func(o *historyOptions) { o.end = &t }
}

// SwapHistory downloads and parses the OHLC feed of the pair
func (p *DexPair) SwapHistory(ctx context.Context, opts ...HistoryOption) (*SwapHistory, error) {
	o := historyOptions{useToken0: true}
	for _, opt := range opts {
		opt(&o)
	}
	c, err := client.Require(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := c.Prices.LoadFeed(ctx, client.FeedRequest{
		PairAddress: p.Address,
		UseToken0:   o.useToken0,
		Start:       o.start,
		End:         o.end,
		ChainID:     p.Network.ChainID(),
	})
	if err != nil {
		return nil, err
	}
	intervals, err := ParseSwapFeed(raw)
	if err != nil {
		return nil, fmt.Errorf("parse feed of %s: %w", p.Address.Hex(), err)
	}
	return &SwapHistory{Pair: p, Intervals: intervals}, nil
}

func (p *DexPair) String() string {
	return fmt.Sprintf("DexPair: %s, %s", p.Token0.Symbol, p.Token1.Symbol)
}

// Liquidity is a reserve snapshot of a pair
type Liquidity struct {
	Token0Balance *big.Int
	Token0Price   *float64
	Token1Balance *big.Int
	Token1Price   *float64
	// Pair is not owned by the snapshot
	Pair *DexPair
}

// Token0Value is the USD value of the token0 reserve; false when the API has no price
func (l *Liquidity) Token0Value() (decimal.Decimal, bool) {
	return reserveValue(l.Token0Balance, l.Token0Price, l.Pair.Token0.Decimals)
}

// Token1Value is the USD value of the token1 reserve; false when the API has no price
func (l *Liquidity) Token1Value() (decimal.Decimal, bool) {
	return reserveValue(l.Token1Balance, l.Token1Price, l.Pair.Token1.Decimals)
}

// Value is the pool value in USD, twice the token0 side, rounded to cents
func (l *Liquidity) Value() (decimal.Decimal, bool) {
	v, ok := l.Token0Value()
	if !ok {
		return decimal.Zero, false
	}
	return v.Mul(decimal.NewFromInt(2)).Round(2), true
}

func reserveValue(balance *big.Int, price *float64, decimals int) (decimal.Decimal, bool) {
	if balance == nil || price == nil || *price <= 0 {
		return decimal.Zero, false
	}
	amount := decimal.NewFromBigInt(balance, -int32(decimals))
	return amount.Mul(decimal.NewFromFloat(*price)), true
}

func (l *Liquidity) String() string {
	value := "unknown"
	if v, ok := l.Value(); ok {
		value = "$" + v.StringFixed(2)
	}
	t0 := decimal.NewFromBigInt(l.Token0Balance, -int32(l.Pair.Token0.Decimals))
	t1 := decimal.NewFromBigInt(l.Token1Balance, -int32(l.Pair.Token1.Decimals))
	return fmt.Sprintf("Liquidity: %s (%s: %s, %s: %s)", value, l.Pair.Token0.Symbol, t0, l.Pair.Token1.Symbol, t1)
}

// LoadLiquidity fetches the reserves of many pairs concurrently. Results keep
// the order of pairs; the first error cancels the rest.
func LoadLiquidity(ctx context.Context, pairs []*DexPair, block *uint64) ([]*Liquidity, error) {
	out := make([]*Liquidity, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, p := range pairs {
		i, p := i, p
		g.Go(func() error {
			l, err := p.Liquidity(gctx, block)
			if err != nil {
				return err
			}
			out[i] = l
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
