package types

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/wnt/empyreal/client"
)

// MaxSwapFee is the highest swap fee an application may charge, as a fraction
const MaxSwapFee = 0.02

// swapFeeScale converts a fractional fee to the parts-per-million the API stores
const swapFeeScale = 1_000_000

// ErrSwapFeeTooHigh is returned for a swap fee outside [0, MaxSwapFee]
var ErrSwapFeeTooHigh = errors.New("swap fee must be between 0 and 2%")

// Application is the builder's application behind the session's API key
type Application struct {
	client.ApplicationRecord
}

// LoadApplication loads the application of the session in ctx
func LoadApplication(ctx context.Context) (*Application, error) {
	c, err := client.Require(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := c.App.Info(ctx)
	if err != nil {
		return nil, err
	}
	return &Application{ApplicationRecord: *rec}, nil
}

// OwnerUser returns the owning user, if the API reported one
func (a *Application) OwnerUser() *User {
	if a.Owner == nil {
		return nil
	}
	return &User{UserRecord: *a.Owner}
}

// FeeWallet returns the wallet fees are collected into, if any
func (a *Application) FeeWallet() *Wallet {
	if a.AppWallet == nil {
		return nil
	}
	return &Wallet{WalletRecord: *a.AppWallet}
}

// UpdateSwapFee sets the swap fee, given as a fraction (0.01 is 1%)
func (a *Application) UpdateSwapFee(ctx context.Context, fee float64) error {
	if fee < 0 || fee > MaxSwapFee || math.IsNaN(fee) {
		return fmt.Errorf("%w: got %v", ErrSwapFeeTooHigh, fee)
	}
	ppm := int64(math.Round(fee * swapFeeScale))
	return a.update(ctx, client.AppUpdate{SwapFee: &ppm})
}

// UpdateAppWallet makes w the fee recipient
func (a *Application) UpdateAppWallet(ctx context.Context, w *Wallet) error {
	if w == nil {
		return errors.New("app wallet is required")
	}
	id := w.ID
	if err := a.update(ctx, client.AppUpdate{OwnerWalletID: &id}); err != nil {
		return err
	}
	rec := w.WalletRecord
	rec.PrivateKey = ""
	a.AppWallet = &rec
	return nil
}

// UpdateAppWalletAddress makes the wallet at address the fee recipient,
// registering it as noncustodial first when needed
func (a *Application) UpdateAppWalletAddress(ctx context.Context, address common.Address) error {
	w, err := LoadNoncustodialWallet(ctx, address)
	if err != nil {
		return err
	}
	return a.UpdateAppWallet(ctx, w)
}

// RefreshAPIKey rotates the API key and stores the new one on the receiver.
// The session in ctx keeps the key it was built with.
func (a *Application) RefreshAPIKey(ctx context.Context) error {
	c, err := client.Require(ctx)
	if err != nil {
		return err
	}
	key, err := c.App.RotateAPIKey(ctx)
	if err != nil {
		return err
	}
	a.APIKey = key
	return nil
}

// update sends the change and patches the local fields the server reports as applied
func (a *Application) update(ctx context.Context, u client.AppUpdate) error {
	c, err := client.Require(ctx)
	if err != nil {
		return err
	}
	updates, err := c.App.Update(ctx, u)
	if err != nil {
		return err
	}
	if err := applyUpdates(&a.ApplicationRecord, updates); err != nil {
		return fmt.Errorf("apply app updates: %w", err)
	}
	return nil
}

// applyUpdates patches rec from an updates object. Keys may be snake_case
// or wire names; the id is never overwritten.
func applyUpdates(rec *client.ApplicationRecord, updates json.RawMessage) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(updates, &fields); err != nil {
		return err
	}

	patch := make(map[string]json.RawMessage, len(fields))
	for key, value := range fields {
		name := wireName(key)
		if strings.EqualFold(name, "id") {
			continue
		}
		patch[name] = value
	}
	if len(patch) == 0 {
		return nil
	}

	raw, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, rec)
}

// wireName turns swap_fee into swapFee; names without underscores pass through
func wireName(key string) string {
	parts := strings.Split(key, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

func (a *Application) String() string {
	return fmt.Sprintf("Application: %s (%s)", a.Name, a.Tier)
}
