package client

import (
	"context"
	"encoding/json"
)

// InfraResource checks service health
type InfraResource struct{ resource }

// Ping returns the liveness payload
func (r *InfraResource) Ping(ctx context.Context) (json.RawMessage, error) {
	resp, err := r.get(ctx, "ping", nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(resp.Body), nil
}
