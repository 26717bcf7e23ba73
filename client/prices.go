package client

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tidwall/gjson"
)

// PriceResource covers DEX metadata, liquidity and the price feed
type PriceResource struct{ resource }

// PairInfo returns the metadata of one pair
func (r *PriceResource) PairInfo(ctx context.Context, pair common.Address, chainID int64) (*PairRecord, error) {
	resp, err := r.get(ctx, "dex/pair", map[string]string{
		"pairAddress": pair.Hex(),
		"chainId":     strconv.FormatInt(chainID, 10),
	})
	if err != nil {
		return nil, err
	}
	rec, err := decode[PairRecord](resp)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// TokenPairs lists every known pair containing token
func (r *PriceResource) TokenPairs(ctx context.Context, token common.Address, chainID int64) ([]PairRecord, error) {
	resp, err := r.get(ctx, "dex/pairs", map[string]string{
		"tokenAddress": token.Hex(),
		"chainId":      strconv.FormatInt(chainID, 10),
	})
	if err != nil {
		return nil, err
	}
	return listField[PairRecord](resp.Body, "pairs")
}

// Routes returns the priced routes from token to WETH and USDC
func (r *PriceResource) Routes(ctx context.Context, token common.Address, chainID int64) ([]RouteRecord, error) {
	resp, err := r.get(ctx, "dex/routes", map[string]string{
		"tokenAddress": token.Hex(),
		"chainId":      strconv.FormatInt(chainID, 10),
	})
	if err != nil {
		return nil, err
	}
	return listField[RouteRecord](resp.Body, "routes")
}

type liquidityBody struct {
	PairAddress string  `json:"pairAddress"`
	ChainID     int64   `json:"chainId"`
	BlockNumber *uint64 `json:"blockNumber"`
}

// Liquidity returns the reserves of pair, at block when given
func (r *PriceResource) Liquidity(ctx context.Context, pair common.Address, chainID int64, block *uint64) (*LiquidityRecord, error) {
	resp, err := r.put(ctx, "dex/liquidity", liquidityBody{
		PairAddress: pair.Hex(),
		ChainID:     chainID,
		BlockNumber: block,
	})
	if err != nil {
		return nil, err
	}

	balances := gjson.GetBytes(resp.Body, "balances")
	if !balances.Exists() {
		return nil, fmt.Errorf("no balances in liquidity response %s", truncate(resp.Body))
	}

	rec := &LiquidityRecord{}
	if rec.Token0Balance, err = parseBigInt(balances.Get("token0.amount"), "token0 amount"); err != nil {
		return nil, err
	}
	if rec.Token1Balance, err = parseBigInt(balances.Get("token1.amount"), "token1 amount"); err != nil {
		return nil, err
	}
	rec.Token0Price = optionalFloat(balances.Get("token0.price"))
	rec.Token1Price = optionalFloat(balances.Get("token1.price"))
	return rec, nil
}

func optionalFloat(r gjson.Result) *float64 {
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	v := r.Float()
	return &v
}

// FeedRequest selects a window of the OHLC swap feed of a pair
type FeedRequest struct {
	PairAddress common.Address
	UseToken0   bool
	Start       *time.Time
	End         *time.Time
	ChainID     int64
}

// LoadFeed returns the raw, usually gzip-compressed, CSV feed
func (r *PriceResource) LoadFeed(ctx context.Context, req FeedRequest) ([]byte, error) {
	query := map[string]string{
		"pairAddress": req.PairAddress.Hex(),
		"useToken0":   strconv.FormatBool(req.UseToken0),
	}
	if req.ChainID != 0 {
		query["chainId"] = strconv.FormatInt(req.ChainID, 10)
	}
	if req.Start != nil {
		query["startTime"] = req.Start.UTC().Format(time.RFC3339)
	}
	if req.End != nil {
		query["endTime"] = req.End.UTC().Format(time.RFC3339)
	}
	resp, err := r.get(ctx, "price/", query)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
