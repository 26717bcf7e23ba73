package types

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wnt/empyreal/client"
)

const (
	wethHex = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	usdcHex = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
)

type reply struct {
	status int
	body   string
}

type recorded struct {
	Method string
	Path   string
	Query  map[string]string
	Body   map[string]interface{}
}

// fakeAPI answers "METHOD /v1/path" keys from routes and records every call
type fakeAPI struct {
	mu     sync.Mutex
	routes map[string]reply
	calls  []recorded
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recorded{Method: r.Method, Path: r.URL.Path, Query: map[string]string{}}
	for k := range r.URL.Query() {
		rec.Query[k] = r.URL.Query().Get(k)
	}
	if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
		_ = json.Unmarshal(raw, &rec.Body)
	}

	f.mu.Lock()
	f.calls = append(f.calls, rec)
	rep, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(rep.status)
	_, _ = w.Write([]byte(rep.body))
}

func (f *fakeAPI) last(t *testing.T) recorded {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

func (f *fakeAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// newSession starts a fake API and returns a context carrying a client for it
func newSession(t *testing.T, routes map[string]reply) (context.Context, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{routes: routes}
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	c, err := client.New("test-key", client.WithBaseURL(server.URL))
	require.NoError(t, err)
	return client.WithClient(context.Background(), c), api
}

func ok(body string) reply { return reply{status: http.StatusOK, body: body} }

func tokenJSON(id, address, symbol string, decimals int) string {
	return `{"id":"` + id + `","address":"` + address + `","name":"` + symbol + ` token","symbol":"` + symbol + `","decimals":` + strconv.Itoa(decimals) + `,"chainId":1}`
}
