package types

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/wnt/empyreal/client"
)

// Token is an ERC20 token. It is immutable once loaded.
type Token struct {
	client.TokenRecord
}

// LoadToken resolves the token at address on network
func LoadToken(ctx context.Context, address common.Address, network Network) (*Token, error) {
	c, err := client.Require(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := c.Token.Lookup(ctx, address, network.ChainID())
	if err != nil {
		return nil, err
	}
	return &Token{TokenRecord: *rec}, nil
}

// Network returns the chain the token lives on
func (t *Token) Network() Network {
	return Network(t.ChainID)
}

// Amount wraps a raw integer in the token's scale
func (t *Token) Amount(raw *big.Int) TokenAmount {
	return NewAmount(raw, t)
}

func (t *Token) String() string {
	return fmt.Sprintf("'%s' on %s", t.Symbol, t.Network())
}

// Target is the destination of a transfer or the spender of an approval:
// either a known wallet or a bare address.
type Target struct {
	wallet  *Wallet
	address common.Address
}

// ToWallet targets a wallet
func ToWallet(w *Wallet) Target { return Target{wallet: w} }

// ToAddress targets an address
func ToAddress(a common.Address) Target { return Target{address: a} }

// Address resolves the target to an address
func (t Target) Address() common.Address {
	if t.wallet != nil {
		return t.wallet.Address
	}
	return t.address
}

// Allowance returns how much spender may move on behalf of owner
func (t *Token) Allowance(ctx context.Context, owner, spender common.Address, block client.BlockTag) (TokenAmount, error) {
	c, err := client.Require(ctx)
	if err != nil {
		return TokenAmount{}, err
	}
	raw, err := c.Token.Allowance(ctx, t.Address, owner, spender, t.ChainID, block)
	if err != nil {
		return TokenAmount{}, err
	}
	return t.Amount(raw), nil
}

type approveOptions struct {
	amount      *big.Int
	priorityFee *big.Int
}

// ApproveOption customizes Approve
type ApproveOption func(*approveOptions)

// WithApprovalAmount approves a finite amount instead of MaxApproval
func WithApprovalAmount(amount TokenAmount) ApproveOption {
	return func(o *approveOptions) { o.amount = amount.Amount }
}

// WithPriorityFee sets the priority fee in wei
func WithPriorityFee(fee *big.Int) ApproveOption {
	return func(o *approveOptions) { o.priorityFee = fee }
}

// Approve lets spender move the token out of from. Without WithApprovalAmount
// the allowance is client.MaxApproval().
func (t *Token) Approve(ctx context.Context, from *Wallet, spender Target, opts ...ApproveOption) (string, error) {
	if from == nil {
		return "", errors.New("approve requires a wallet")
	}
	o := approveOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	c, err := client.Require(ctx)
	if err != nil {
		return "", err
	}
	return c.Token.Approve(ctx, client.ApproveRequest{
		TokenID:     t.ID,
		WalletID:    from.ID,
		Spender:     spender.Address(),
		ChainID:     t.ChainID,
		Amount:      o.amount,
		PriorityFee: o.priorityFee,
	})
}

// Transfer sends amount from a custodial wallet to recipient. gasPrice may be nil.
func (t *Token) Transfer(ctx context.Context, from *Wallet, recipient Target, amount TokenAmount, gasPrice *big.Int) (string, error) {
	if from == nil {
		return "", errors.New("transfer requires a wallet")
	}
	if amount.Token != nil && amount.Token.ID != t.ID {
		return "", fmt.Errorf("amount is denominated in %s, not %s", amount.Token.Symbol, t.Symbol)
	}
	c, err := client.Require(ctx)
	if err != nil {
		return "", err
	}
	return c.Token.Transfer(ctx, t.ID, from.ID, recipient.Address(), amount.raw(), gasPrice)
}

// BalanceOfWallet returns the balance of w on the token's network
func (t *Token) BalanceOfWallet(ctx context.Context, w *Wallet, block client.BlockTag) (TokenAmount, error) {
	if w == nil {
		return TokenAmount{}, errors.New("balance requires a wallet")
	}
	return t.BalanceOfAddress(ctx, w.Address, t.Network(), block)
}

// BalanceOfAddress returns the balance of owner on network
func (t *Token) BalanceOfAddress(ctx context.Context, owner common.Address, network Network, block client.BlockTag) (TokenAmount, error) {
	c, err := client.Require(ctx)
	if err != nil {
		return TokenAmount{}, err
	}
	raw, err := c.Token.BalanceOf(ctx, t.Address, owner, network.ChainID(), block)
	if err != nil {
		return TokenAmount{}, err
	}
	return t.Amount(raw), nil
}

// Security returns the risk report of the token
func (t *Token) Security(ctx context.Context) (*client.SecurityRecord, error) {
	c, err := client.Require(ctx)
	if err != nil {
		return nil, err
	}
	return c.Security.Report(ctx, t.Address, t.ChainID)
}
