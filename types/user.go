package types

import (
	"context"

	"github.com/wnt/empyreal/client"
)

// User owns wallets and vault positions within an application
type User struct {
	client.UserRecord
}

// LoadUserFromTelegram resolves the user linked to a Telegram account
func LoadUserFromTelegram(ctx context.Context, telegramID string) (*User, error) {
	c, err := client.Require(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := c.User.FromTelegram(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	return &User{UserRecord: *rec}, nil
}

// Wallets lists the user's wallets
func (u *User) Wallets(ctx context.Context) ([]*Wallet, error) {
	c, err := client.Require(ctx)
	if err != nil {
		return nil, err
	}
	recs, err := c.Wallet.UserWallets(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return wrapWallets(recs), nil
}

// MakeWallet creates a wallet for the user. An empty privateKey generates a mnemonic wallet.
func (u *User) MakeWallet(ctx context.Context, name string, privateKey client.Secret) (*Wallet, error) {
	c, err := client.Require(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := c.Wallet.MakeWallet(ctx, u.ID, name, privateKey)
	if err != nil {
		return nil, err
	}
	return &Wallet{WalletRecord: *rec}, nil
}

// VaultPositions lists the user's stakes across the application's vaults
func (u *User) VaultPositions(ctx context.Context) ([]client.VaultPosition, error) {
	c, err := client.Require(ctx)
	if err != nil {
		return nil, err
	}
	return c.Vault.UserPositions(ctx, u.ID)
}

func (u *User) String() string {
	return "User: " + u.Name
}
