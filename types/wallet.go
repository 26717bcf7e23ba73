package types

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/wnt/empyreal/client"
)

// Wallet is a custodial or watched wallet. PrivateKey is only populated by
// LoadWalletWithPrivateKey and redacts itself when printed or serialized.
type Wallet struct {
	client.WalletRecord
}

// LoadWallet loads a wallet without its private key
func LoadWallet(ctx context.Context, id uuid.UUID) (*Wallet, error) {
	return loadWallet(ctx, id, false)
}

// LoadWalletWithPrivateKey loads a wallet including its private key
func LoadWalletWithPrivateKey(ctx context.Context, id uuid.UUID) (*Wallet, error) {
	return loadWallet(ctx, id, true)
}

func loadWallet(ctx context.Context, id uuid.UUID, withPrivateKey bool) (*Wallet, error) {
	c, err := client.Require(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := c.Wallet.Info(ctx, id, withPrivateKey)
	if err != nil {
		return nil, err
	}
	return &Wallet{WalletRecord: *rec}, nil
}

// LoadNoncustodialWallet registers address as a watch-only wallet, or returns the existing one
func LoadNoncustodialWallet(ctx context.Context, address common.Address) (*Wallet, error) {
	c, err := client.Require(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := c.Wallet.LoadNoncustodial(ctx, address)
	if err != nil {
		return nil, err
	}
	return &Wallet{WalletRecord: *rec}, nil
}

// AppWallets lists the wallets owned by the application
func AppWallets(ctx context.Context) ([]*Wallet, error) {
	c, err := client.Require(ctx)
	if err != nil {
		return nil, err
	}
	recs, err := c.Wallet.AppWallets(ctx)
	if err != nil {
		return nil, err
	}
	return wrapWallets(recs), nil
}

// MakeAppWallet creates an application wallet, imported from privateKey when it is not empty
func MakeAppWallet(ctx context.Context, name string, privateKey client.Secret) (*Wallet, error) {
	c, err := client.Require(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := c.Wallet.MakeAppWallet(ctx, name, privateKey)
	if err != nil {
		return nil, err
	}
	return &Wallet{WalletRecord: *rec}, nil
}

// Archive hides the wallet from listings
func (w *Wallet) Archive(ctx context.Context) error {
	c, err := client.Require(ctx)
	if err != nil {
		return err
	}
	return c.Wallet.Archive(ctx, w.ID)
}

// Data returns the app data attached to the wallet
func (w *Wallet) Data(ctx context.Context) (*client.WalletData, error) {
	c, err := client.Require(ctx)
	if err != nil {
		return nil, err
	}
	return c.Wallet.Data(ctx, w.ID)
}

// UpdateData replaces the app data attached to the wallet
func (w *Wallet) UpdateData(ctx context.Context, data client.WalletData) error {
	c, err := client.Require(ctx)
	if err != nil {
		return err
	}
	return c.Wallet.UpdateData(ctx, w.ID, data)
}

func (w *Wallet) String() string {
	return fmt.Sprintf("%s (%s, %s)", w.Name, w.Type, w.Address.Hex())
}

func wrapWallets(recs []client.WalletRecord) []*Wallet {
	out := make([]*Wallet, len(recs))
	for i := range recs {
		out[i] = &Wallet{WalletRecord: recs[i]}
	}
	return out
}
