package client

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnt/empyreal/transport"
)

func TestCheckResponse(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   Kind
		wantIs     error
		wantDetail string
	}{
		{
			name:       "rate limited",
			status:     429,
			body:       `{"detail":"slow down"}`,
			wantKind:   KindRateLimited,
			wantIs:     ErrRateLimited,
			wantDetail: "slow down",
		},
		{
			name:       "not found",
			status:     400,
			body:       `{"detail":"no such token"}`,
			wantKind:   KindNotFound,
			wantIs:     ErrNotFound,
			wantDetail: "no such token",
		},
		{
			name:     "server error without detail",
			status:   500,
			body:     `Internal Server Error`,
			wantKind: KindUnknown,
			wantIs:   ErrUnknownService,
		},
		{
			name:       "unlisted status",
			status:     404,
			body:       `{"detail":"Not Found"}`,
			wantKind:   KindUnknown,
			wantIs:     ErrUnknownService,
			wantDetail: "Not Found",
		},
		{
			name:       "validation list detail",
			status:     422,
			body:       `{"detail":[{"loc":["body","chainId"]}]}`,
			wantKind:   KindUnknown,
			wantIs:     ErrUnknownService,
			wantDetail: `[{"loc":["body","chainId"]}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckResponse(&transport.Response{StatusCode: tt.status, Body: []byte(tt.body)})
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.wantKind, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantDetail, apiErr.Detail)
			assert.True(t, errors.Is(err, tt.wantIs))
		})
	}
}

func TestCheckResponseSuccess(t *testing.T) {
	for _, status := range []int{200, 201, 204} {
		assert.NoError(t, CheckResponse(&transport.Response{StatusCode: status}))
	}
}

func TestAPIErrorKindsDoNotCrossMatch(t *testing.T) {
	err := CheckResponse(&transport.Response{StatusCode: 429, Body: []byte(`{"detail":"slow down"}`)})
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrUnknownService))
	assert.Contains(t, err.Error(), "slow down")
}
