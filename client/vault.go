package client

import (
	"context"

	"github.com/google/uuid"
)

// VaultResource manages application vaults
type VaultResource struct{ resource }

// All lists the application's vaults
func (r *VaultResource) All(ctx context.Context) ([]VaultRecord, error) {
	resp, err := r.get(ctx, "vault/", nil)
	if err != nil {
		return nil, err
	}
	return listField[VaultRecord](resp.Body, "vaults")
}

// UserPositions lists a user's positions across vaults
func (r *VaultResource) UserPositions(ctx context.Context, userID uuid.UUID) ([]VaultPosition, error) {
	resp, err := r.get(ctx, "vault/positions", map[string]string{"userId": userID.String()})
	if err != nil {
		return nil, err
	}
	return listField[VaultPosition](resp.Body, "positions")
}

type newVaultBody struct {
	TokenID     uuid.UUID `json:"tokenId"`
	Type        VaultType `json:"type"`
	VaultName   string    `json:"vaultName"`
	Description string    `json:"description"`
}

// MakeNewAppVault creates a vault for tokenID and returns its id
func (r *VaultResource) MakeNewAppVault(ctx context.Context, tokenID uuid.UUID, kind VaultType, name, description string) (uuid.UUID, error) {
	resp, err := r.post(ctx, "vault/", newVaultBody{
		TokenID:     tokenID,
		Type:        kind,
		VaultName:   name,
		Description: description,
	})
	if err != nil {
		return uuid.Nil, err
	}
	return idField(resp.Body, "id", "vaultId")
}
