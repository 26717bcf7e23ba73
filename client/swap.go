package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// SwapResource simulates and submits swaps
type SwapResource struct{ resource }

// SwapSimulation describes a swap to estimate
type SwapSimulation struct {
	Dex      string
	Path     []common.Address
	Fees     []int64
	AmountIn *big.Int
	Sender   common.Address
	ChainID  int64
	UseEth   bool
}

type simulateBody struct {
	Dex      string   `json:"dex"`
	Path     []string `json:"path"`
	Fees     []int64  `json:"fees"`
	AmountIn string   `json:"amountIn"`
	Sender   string   `json:"sender"`
	ChainID  int64    `json:"chainId"`
	UseEth   bool     `json:"useEth"`
}

// Simulate estimates the output of a swap. Nothing is submitted on chain.
func (r *SwapResource) Simulate(ctx context.Context, sim SwapSimulation) (*SimulationRecord, error) {
	if sim.AmountIn == nil {
		return nil, errors.New("amount in is required")
	}
	resp, err := r.put(ctx, "dex/simulate", simulateBody{
		Dex:      sim.Dex,
		Path:     hexPath(sim.Path),
		Fees:     nonNilFees(sim.Fees),
		AmountIn: sim.AmountIn.String(),
		Sender:   sim.Sender.Hex(),
		ChainID:  sim.ChainID,
		UseEth:   sim.UseEth,
	})
	if err != nil {
		return nil, err
	}

	out, err := bigIntField(resp.Body, "amountOut")
	if err != nil {
		return nil, err
	}
	var token TokenRecord
	if err := json.Unmarshal([]byte(gjson.GetBytes(resp.Body, "token").Raw), &token); err != nil {
		return nil, fmt.Errorf("decode simulated token: %w", err)
	}
	return &SimulationRecord{Token: token, AmountOut: out}, nil
}

// SwapOrder is a swap to submit from a custodial wallet
type SwapOrder struct {
	Dex         string
	Path        []common.Address
	AmountIn    *big.Int
	WalletID    uuid.UUID
	Slippage    float64
	PriorityFee *big.Int
	IsPrivate   bool
	ChainID     int64
	UseEth      bool
	Fees        []int64
}

type swapBody struct {
	Path        []string  `json:"path"`
	AmountIn    *big.Int  `json:"amountIn"`
	WalletID    uuid.UUID `json:"walletId"`
	Slippage    float64   `json:"slippage"`
	PriorityFee *big.Int  `json:"priorityFee"`
	IsPrivate   bool      `json:"isPrivate"`
	ChainID     int64     `json:"chainId"`
	UseEth      bool      `json:"useEth"`
	Fees        []int64   `json:"fees"`
	Dex         string    `json:"dex"`
}

// Swap submits a swap and returns its hash along with the raw result. It is never retried.
func (r *SwapResource) Swap(ctx context.Context, order SwapOrder) (*SwapResult, error) {
	if order.AmountIn == nil {
		return nil, errors.New("amount in is required")
	}
	priorityFee := order.PriorityFee
	if priorityFee == nil {
		priorityFee = new(big.Int)
	}
	resp, err := r.post(ctx, "dex/swap", swapBody{
		Path:        hexPath(order.Path),
		AmountIn:    order.AmountIn,
		WalletID:    order.WalletID,
		Slippage:    order.Slippage,
		PriorityFee: priorityFee,
		IsPrivate:   order.IsPrivate,
		ChainID:     order.ChainID,
		UseEth:      order.UseEth,
		Fees:        nonNilFees(order.Fees),
		Dex:         order.Dex,
	})
	if err != nil {
		return nil, err
	}
	// Older deployments return the whole receipt without a top-level hash.
	hash, err := txHash(resp.Body)
	if err != nil {
		r.client.logger.Debug().Err(err).Msg("swap result carries no transaction hash")
	}
	return &SwapResult{TxHash: hash, HasHash: err == nil, Raw: json.RawMessage(resp.Body)}, nil
}

func hexPath(path []common.Address) []string {
	out := make([]string, len(path))
	for i, a := range path {
		out[i] = a.Hex()
	}
	return out
}

func nonNilFees(fees []int64) []int64 {
	if fees == nil {
		return []int64{}
	}
	return fees
}
