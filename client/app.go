package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// AppResource reads and configures the application behind the API key
type AppResource struct{ resource }

// AppUpdate holds the fields to change; nil fields are not sent
type AppUpdate struct {
	OwnerWalletID       *uuid.UUID `json:"ownerWalletId,omitempty"`
	TransferFee         *int64     `json:"transferFee,omitempty"`
	SwapFee             *int64     `json:"swapFee,omitempty"`
	MinFee              *int64     `json:"minFee,omitempty"`
	MaxFee              *int64     `json:"maxFee,omitempty"`
	FeeCollectionAmount *int64     `json:"feeCollectionAmount,omitempty"`
}

// Info returns the application
func (r *AppResource) Info(ctx context.Context) (*ApplicationRecord, error) {
	resp, err := r.get(ctx, "app/", nil)
	if err != nil {
		return nil, err
	}
	app, err := decode[ApplicationRecord](resp)
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// Update changes application settings and returns the fields the server applied
func (r *AppResource) Update(ctx context.Context, update AppUpdate) (json.RawMessage, error) {
	resp, err := r.put(ctx, "app/", update)
	if err != nil {
		return nil, err
	}
	updates := gjson.GetBytes(resp.Body, "updates")
	if !updates.Exists() || updates.Type == gjson.Null {
		return json.RawMessage("{}"), nil
	}
	if !updates.IsObject() {
		return nil, fmt.Errorf("unexpected updates payload %s", truncate(resp.Body))
	}
	return json.RawMessage(updates.Raw), nil
}

// RotateAPIKey issues a new key for the application. The current session
// keeps using the key it was created with.
func (r *AppResource) RotateAPIKey(ctx context.Context) (Secret, error) {
	resp, err := r.put(ctx, "app/apikey", nil)
	if err != nil {
		return "", err
	}
	v := gjson.ParseBytes(resp.Body)
	if v.Type != gjson.String {
		v = v.Get("apiKey")
	}
	if v.Type != gjson.String || v.Str == "" {
		return "", fmt.Errorf("no api key in response")
	}
	return Secret(v.Str), nil
}
