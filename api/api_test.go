package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	membership "github.com/xraph/membership"
	"github.com/xraph/membership/api"
	"github.com/xraph/membership/clock"
	"github.com/xraph/membership/store/memory"
	"github.com/xraph/membership/verification"
)

const (
	admin = "0xad0000000000000000000000000000000000ad01"
	buyer = "0xb0b0000000000000000000000000000000000b01"
	other = "0x0e00000000000000000000000000000000000e01"
)

var start = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type server struct {
	srv   *httptest.Server
	clock *clock.FakeClock
}

func newServer(t *testing.T, maxSupply uint64) *server {
	t.Helper()

	c := clock.Fake(start)
	eng, err := membership.New(membership.Config{
		Name:      "Altura Pass",
		Symbol:    "ALT",
		BaseURI:   "ipfs://cid/",
		MaxSupply: maxSupply,
		Admin:     admin,
	}, memory.New(), membership.WithClock(c))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop() })

	srv := httptest.NewServer(api.New(eng, "/membership"))
	t.Cleanup(srv.Close)
	return &server{srv: srv, clock: c}
}

func (s *server) do(t *testing.T, method, path, caller, body string, out any) int {
	t.Helper()

	req, err := http.NewRequest(method, s.srv.URL+"/membership"+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if caller != "" {
		req.Header.Set(api.CallerHeader, caller)
	}

	resp, err := s.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (s *server) createTier(t *testing.T, price string, secs int) uint64 {
	t.Helper()
	var out struct {
		TierID uint64 `json:"tier_id"`
	}
	body := fmt.Sprintf(`{"price":%q,"duration_secs":%d}`, price, secs)
	if code := s.do(t, http.MethodPost, "/tiers", admin, body, &out); code != http.StatusCreated {
		t.Fatalf("create tier: status %d", code)
	}
	return out.TierID
}

func TestPurchaseAndVerify(t *testing.T) {
	s := newServer(t, 10)
	tierID := s.createTier(t, "10000000000000000", 604800)

	var tok api.TokenView
	path := fmt.Sprintf("/tiers/%d/purchase", tierID)
	if code := s.do(t, http.MethodPost, path, buyer, `{"paid":"10000000000000000"}`, &tok); code != http.StatusCreated {
		t.Fatalf("purchase: status %d", code)
	}
	if tok.Owner != buyer || !tok.Active || tok.URI != "ipfs://cid/0" {
		t.Errorf("token = %+v", tok)
	}
	if want := start.Add(604800 * time.Second); !tok.ExpiresAt.Equal(want) {
		t.Errorf("expires_at = %v, want %v", tok.ExpiresAt, want)
	}

	var res verification.Result
	s.do(t, http.MethodGet, "/members/"+buyer, "", "", &res)
	if !res.Member || len(res.ActiveTokens) != 1 {
		t.Errorf("verify = %+v", res)
	}

	s.clock.Advance(604800 * time.Second)
	s.do(t, http.MethodGet, "/members/"+buyer, "", "", &res)
	if res.Member || res.Reason != verification.ReasonAllExpired {
		t.Errorf("verify after expiry = %+v", res)
	}
}

func TestRenewStacksTime(t *testing.T) {
	s := newServer(t, 10)
	tierID := s.createTier(t, "100", 60)
	s.do(t, http.MethodPost, fmt.Sprintf("/tiers/%d/purchase", tierID), buyer, `{"paid":100}`, nil)

	var tok api.TokenView
	if code := s.do(t, http.MethodPost, "/tokens/0/renew", buyer, `{"paid":"100"}`, &tok); code != http.StatusOK {
		t.Fatalf("renew: status %d", code)
	}
	if want := start.Add(120 * time.Second); !tok.ExpiresAt.Equal(want) {
		t.Errorf("expires_at = %v, want %v", tok.ExpiresAt, want)
	}
}

func TestErrorStatuses(t *testing.T) {
	s := newServer(t, 1)
	tierID := s.createTier(t, "100", 60)
	purchase := fmt.Sprintf("/tiers/%d/purchase", tierID)
	s.do(t, http.MethodPost, purchase, buyer, `{"paid":"100"}`, nil)

	tests := []struct {
		name   string
		method string
		path   string
		caller string
		body   string
		want   int
	}{
		{"non-admin tier", http.MethodPost, "/tiers", buyer, `{"price":"1","duration_secs":60}`, http.StatusForbidden},
		{"unknown tier", http.MethodGet, "/tiers/9", "", "", http.StatusNotFound},
		{"unknown token", http.MethodGet, "/tokens/9", "", "", http.StatusNotFound},
		{"supply exhausted", http.MethodPost, purchase, other, `{"paid":"100"}`, http.StatusConflict},
		{"wrong price", http.MethodPost, "/tokens/0/renew", buyer, `{"paid":"99"}`, http.StatusPaymentRequired},
		{"renew by stranger", http.MethodPost, "/tokens/0/renew", other, `{"paid":"100"}`, http.StatusForbidden},
		{"bad id", http.MethodGet, "/tiers/abc", "", "", http.StatusBadRequest},
		{"bad body", http.MethodPost, "/tiers", admin, `{"price":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/tiers", admin, `{"price":"1","duration_secs":60,"extra":1}`, http.StatusBadRequest},
		{"zero duration", http.MethodPost, "/tiers", admin, `{"price":"1","duration_secs":0}`, http.StatusBadRequest},
		{"update without active", http.MethodPut, "/tiers/0", admin, `{"price":"1","duration_secs":60}`, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/events?limit=x", "", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out map[string]string
			code := s.do(t, tt.method, tt.path, tt.caller, tt.body, &out)
			if code != tt.want {
				t.Errorf("status = %d, want %d (%v)", code, tt.want, out)
			}
			if out["error"] == "" {
				t.Error("expected error message in body")
			}
		})
	}
}

func TestAmountAboveCeiling(t *testing.T) {
	s := newServer(t, 10)
	tierID := s.createTier(t, "100", 60)

	tests := []struct {
		name   string
		method string
		path   string
		caller string
		body   string
	}{
		{"tier price", http.MethodPost, "/tiers", admin, `{"price":"18446744073709551616","duration_secs":60}`},
		{"payment", http.MethodPost, fmt.Sprintf("/tiers/%d/purchase", tierID), buyer, `{"paid":"20000000000000000000"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out map[string]string
			if code := s.do(t, tt.method, tt.path, tt.caller, tt.body, &out); code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d (%v)", code, http.StatusBadRequest, out)
			}
			if !strings.Contains(out["error"], "out of range") {
				t.Errorf("error = %q, want out-of-range message", out["error"])
			}
		})
	}
}

func TestInactiveTierConflict(t *testing.T) {
	s := newServer(t, 10)
	tierID := s.createTier(t, "100", 60)

	path := fmt.Sprintf("/tiers/%d", tierID)
	if code := s.do(t, http.MethodPut, path, admin, `{"price":"100","duration_secs":60,"active":false}`, nil); code != http.StatusNoContent {
		t.Fatalf("update: status %d", code)
	}

	var out map[string]string
	if code := s.do(t, http.MethodPost, path+"/purchase", buyer, `{"paid":"100"}`, &out); code != http.StatusConflict {
		t.Errorf("purchase inactive: status %d (%v)", code, out)
	}
}

func TestApproveAndTransfer(t *testing.T) {
	s := newServer(t, 10)
	tierID := s.createTier(t, "100", 60)
	s.do(t, http.MethodPost, fmt.Sprintf("/tiers/%d/purchase", tierID), buyer, `{"paid":"100"}`, nil)

	if code := s.do(t, http.MethodPost, "/tokens/0/approve", buyer, fmt.Sprintf(`{"operator":%q}`, other), nil); code != http.StatusNoContent {
		t.Fatalf("approve: status %d", code)
	}
	if code := s.do(t, http.MethodPost, "/tokens/0/transfer", other, fmt.Sprintf(`{"to":%q}`, other), nil); code != http.StatusNoContent {
		t.Fatalf("transfer: status %d", code)
	}

	var tok api.TokenView
	s.do(t, http.MethodGet, "/tokens/0", "", "", &tok)
	if tok.Owner != other || tok.Approved != "" {
		t.Errorf("token after transfer = %+v", tok)
	}
}

func TestInfoBaseURIAndEvents(t *testing.T) {
	s := newServer(t, 10)
	tierID := s.createTier(t, "100", 60)
	s.do(t, http.MethodPost, fmt.Sprintf("/tiers/%d/purchase", tierID), buyer, `{"paid":"100"}`, nil)

	if code := s.do(t, http.MethodPut, "/base-uri", admin, `{"base_uri":"https://meta.example/"}`, nil); code != http.StatusNoContent {
		t.Fatalf("set base uri: status %d", code)
	}

	var info api.Info
	s.do(t, http.MethodGet, "/info", "", "", &info)
	if info.Name != "Altura Pass" || info.TotalMinted != 1 || info.Tiers != 1 || info.BaseURI != "https://meta.example/" {
		t.Errorf("info = %+v", info)
	}

	var tiers []api.TierView
	s.do(t, http.MethodGet, "/tiers", "", "", &tiers)
	if len(tiers) != 1 || tiers[0].Price.Amount != 100 || tiers[0].DurationSecs != 60 {
		t.Errorf("tiers = %+v", tiers)
	}

	var events []struct {
		Seq  uint64 `json:"seq"`
		Type string `json:"type"`
	}
	s.do(t, http.MethodGet, "/events?token_id=0", "", "", &events)
	if len(events) != 1 || events[0].Type != "token.purchased" {
		t.Errorf("token events = %+v", events)
	}
	s.do(t, http.MethodGet, "/events?after=1&limit=5", "", "", &events)
	if len(events) != 2 {
		t.Errorf("events after 1 = %+v", events)
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{membership.ErrUnauthorized, http.StatusForbidden},
		{membership.ErrTokenNotFound, http.StatusNotFound},
		{membership.ErrInactiveTier, http.StatusConflict},
		{membership.ErrSupplyExhausted, http.StatusConflict},
		{fmt.Errorf("wrapped: %w", membership.ErrWrongPrice), http.StatusPaymentRequired},
		{membership.ValidationError{Field: "name", Message: "is required"}, http.StatusBadRequest},
		{membership.ErrNotStarted, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := api.StatusOf(tt.err); got != tt.want {
				t.Errorf("StatusOf = %d, want %d", got, tt.want)
			}
		})
	}
}
