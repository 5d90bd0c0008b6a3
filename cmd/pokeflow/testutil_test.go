package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/JamesPrial/pokeflow/pkg/config"
)

// fakeAPI serves a listing of count entries and a detail for any name
type fakeAPI struct {
	count       int
	detailCalls atomic.Int32
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/pokemon":
		results := make([]string, f.count)
		for i := range results {
			results[i] = fmt.Sprintf(`{"name":"mon%d","url":""}`, i)
		}
		fmt.Fprintf(w, `{"results":[%s]}`, strings.Join(results, ","))
	case r.URL.Path == "/pokemon/missingno":
		http.NotFound(w, r)
	case strings.HasPrefix(r.URL.Path, "/pokemon/"):
		f.detailCalls.Add(1)
		name := strings.TrimPrefix(r.URL.Path, "/pokemon/")
		fmt.Fprintf(w, `{"name":%q,"height":4,"weight":60,"sprites":{"front_default":"https://img.test/%s.png"},"types":[{"type":{"name":"electric"}},{"type":{"name":"steel"}}]}`, name, name)
	default:
		http.NotFound(w, r)
	}
}

func newFakeAPI(t *testing.T, count int) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{count: count}
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)
	return api, server
}

func testSettings(baseURL string) *config.Settings {
	cfg := config.Default()
	cfg.API.BaseURL = baseURL
	return cfg
}
