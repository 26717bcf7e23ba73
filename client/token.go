package client

import (
	"context"
	"errors"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// TokenResource covers token metadata, balances and transfers
type TokenResource struct{ resource }

// Lookup resolves a token by address and chain. Unknown tokens fail with ErrNotFound.
func (r *TokenResource) Lookup(ctx context.Context, address common.Address, chainID int64) (*TokenRecord, error) {
	resp, err := r.get(ctx, "token/lookup", map[string]string{
		"address": address.Hex(),
		"chainId": strconv.FormatInt(chainID, 10),
	})
	if err != nil {
		return nil, err
	}
	token, err := decode[TokenRecord](resp)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// Transfer sends amount raw token units from a custodial wallet. It returns the tx hash.
func (r *TokenResource) Transfer(ctx context.Context, tokenID, fromWalletID uuid.UUID, recipient common.Address, amount *big.Int, gasPrice *big.Int) (string, error) {
	if amount == nil {
		return "", errors.New("transfer amount is required")
	}
	query := map[string]string{
		"walletId":         fromWalletID.String(),
		"tokenId":          tokenID.String(),
		"recipientAddress": recipient.Hex(),
		"amount":           amount.String(),
	}
	if gasPrice != nil {
		query["gasPrice"] = gasPrice.String()
	}
	resp, err := r.get(ctx, "token/transfer", query)
	if err != nil {
		return "", err
	}
	return txHash(resp.Body)
}

// ApproveRequest grants spender an allowance. A nil Amount approves MaxApproval().
type ApproveRequest struct {
	TokenID     uuid.UUID
	WalletID    uuid.UUID
	Spender     common.Address
	ChainID     int64
	Amount      *big.Int
	PriorityFee *big.Int
}

type approveBody struct {
	TokenID     uuid.UUID `json:"tokenId"`
	WalletID    uuid.UUID `json:"walletId"`
	Spender     string    `json:"spender"`
	ChainID     int64     `json:"chainId"`
	Amount      *big.Int  `json:"amount"`
	PriorityFee *big.Int  `json:"priorityFee"`
}

// Approve submits an ERC20 approval and returns the tx hash
func (r *TokenResource) Approve(ctx context.Context, req ApproveRequest) (string, error) {
	body := approveBody{
		TokenID:     req.TokenID,
		WalletID:    req.WalletID,
		Spender:     req.Spender.Hex(),
		ChainID:     req.ChainID,
		Amount:      req.Amount,
		PriorityFee: req.PriorityFee,
	}
	if body.Amount == nil {
		body.Amount = MaxApproval()
	}
	if body.PriorityFee == nil {
		body.PriorityFee = new(big.Int)
	}
	resp, err := r.post(ctx, "token/approve", body)
	if err != nil {
		return "", err
	}
	return txHash(resp.Body)
}

type balanceBody struct {
	TokenAddress string   `json:"tokenAddress"`
	OwnerAddress string   `json:"ownerAddress"`
	ChainID      int64    `json:"chainId"`
	Block        BlockTag `json:"block"`
}

// BalanceOf returns the raw balance of owner at block
func (r *TokenResource) BalanceOf(ctx context.Context, token, owner common.Address, chainID int64, block BlockTag) (*big.Int, error) {
	resp, err := r.put(ctx, "token/balance", balanceBody{
		TokenAddress: token.Hex(),
		OwnerAddress: owner.Hex(),
		ChainID:      chainID,
		Block:        block,
	})
	if err != nil {
		return nil, err
	}
	return bigIntField(resp.Body, "balance")
}

// Allowance returns the raw amount spender may move on behalf of owner
func (r *TokenResource) Allowance(ctx context.Context, token, owner, spender common.Address, chainID int64, block BlockTag) (*big.Int, error) {
	resp, err := r.get(ctx, "token/allowance", map[string]string{
		"tokenAddress": token.Hex(),
		"owner":        owner.Hex(),
		"spender":      spender.Hex(),
		"chainId":      strconv.FormatInt(chainID, 10),
		"block":        block.String(),
	})
	if err != nil {
		return nil, err
	}
	return bigIntField(resp.Body, "allowance")
}

type taxesBody struct {
	Token0  string `json:"token0Address"`
	Token1  string `json:"token1Address"`
	ChainID int64  `json:"chainId"`
}

// Taxes returns the buy and sell tax of swapping token0 against token1
func (r *TokenResource) Taxes(ctx context.Context, token0, token1 common.Address, chainID int64) (*TaxesRecord, error) {
	resp, err := r.put(ctx, "token/taxes", taxesBody{
		Token0:  token0.Hex(),
		Token1:  token1.Hex(),
		ChainID: chainID,
	})
	if err != nil {
		return nil, err
	}
	taxes, err := decode[TaxesRecord](resp)
	if err != nil {
		return nil, err
	}
	return &taxes, nil
}
