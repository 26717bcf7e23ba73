package client

import (
	"context"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

// SecurityResource fetches token risk reports
type SecurityResource struct{ resource }

// Report returns the security report of token
func (r *SecurityResource) Report(ctx context.Context, token common.Address, chainID int64) (*SecurityRecord, error) {
	resp, err := r.get(ctx, "security/", map[string]string{
		"tokenAddress": token.Hex(),
		"chainId":      strconv.FormatInt(chainID, 10),
	})
	if err != nil {
		return nil, err
	}
	report, err := decode[SecurityRecord](resp)
	if err != nil {
		return nil, err
	}
	return &report, nil
}
