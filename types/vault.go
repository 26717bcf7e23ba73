package types

import (
	"context"

	"github.com/google/uuid"
	"github.com/wnt/empyreal/client"
)

// Vault pools a single token for the application's users
type Vault struct {
	client.VaultRecord
}

// LoadVaults lists the application's vaults
func LoadVaults(ctx context.Context) ([]*Vault, error) {
	c, err := client.Require(ctx)
	if err != nil {
		return nil, err
	}
	recs, err := c.Vault.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Vault, len(recs))
	for i := range recs {
		out[i] = &Vault{VaultRecord: recs[i]}
	}
	return out, nil
}

// MakeNewAppVault creates a vault holding token and returns its id
func MakeNewAppVault(ctx context.Context, token *Token, kind client.VaultType, name, description string) (uuid.UUID, error) {
	c, err := client.Require(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	return c.Vault.MakeNewAppVault(ctx, token.ID, kind, name, description)
}

// AssetToken returns the token the vault holds
func (v *Vault) AssetToken() *Token {
	return &Token{TokenRecord: v.Token}
}
