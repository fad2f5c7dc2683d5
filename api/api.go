// Package api exposes a membership Engine over JSON/HTTP.
//
// The caller of a mutating request is taken from the X-Membership-Caller
// header. The header is trusted as-is; put an authenticating proxy in
// front of the handler when callers are not trusted.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bunrouter"

	membership "github.com/xraph/membership"
	"github.com/xraph/membership/event"
	"github.com/xraph/membership/types"
)

// CallerHeader carries the identity a request acts on behalf of.
const CallerHeader = "X-Membership-Caller"

// Handler serves the membership HTTP API.
type Handler struct {
	engine *membership.Engine
	logger *slog.Logger
	router *bunrouter.Router
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger used for request failures.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// New builds a Handler for engine. Routes are mounted under basePath
// ("" or "/" for the root).
func New(engine *membership.Engine, basePath string, opts ...Option) *Handler {
	h := &Handler{engine: engine, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}

	h.router = bunrouter.New(bunrouter.Use(h.errorMiddleware))
	h.router.WithGroup(strings.TrimRight(basePath, "/"), h.routes)
	return h
}

func (h *Handler) routes(g *bunrouter.Group) {
	g.GET("/info", h.info)

	g.GET("/tiers", h.listTiers)
	g.POST("/tiers", h.createTier)
	g.GET("/tiers/:id", h.getTier)
	g.PUT("/tiers/:id", h.updateTier)
	g.POST("/tiers/:id/purchase", h.purchase)

	g.GET("/tokens/:id", h.getToken)
	g.POST("/tokens/:id/renew", h.renew)
	g.POST("/tokens/:id/approve", h.approve)
	g.POST("/tokens/:id/transfer", h.transfer)

	g.GET("/members/:address", h.member)
	g.PUT("/base-uri", h.setBaseURI)
	g.GET("/events", h.events)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// ──────────────────────────────────────────────────
// Wire types
// ──────────────────────────────────────────────────

// Amount is an unsigned integer accepted as a JSON number or a decimal
// string, and always written as a string.
type Amount uint64

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	v, err := types.ParseAmount(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*a = Amount(v)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(a), 10))
}

// TierRequest creates or updates a tier. Active is ignored on create.
type TierRequest struct {
	Price        Amount `json:"price"`
	DurationSecs uint64 `json:"duration_secs"`
	Active       *bool  `json:"active,omitempty"`
}

// PaymentRequest carries the amount paid for a purchase or renewal.
type PaymentRequest struct {
	Paid Amount `json:"paid"`
}

// ApproveRequest names the operator; an empty operator clears it.
type ApproveRequest struct {
	Operator string `json:"operator"`
}

// TransferRequest names the new owner.
type TransferRequest struct {
	To string `json:"to"`
}

// BaseURIRequest sets the descriptor base URI.
type BaseURIRequest struct {
	BaseURI string `json:"base_uri"`
}

// Info describes the collection.
type Info struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Currency    string `json:"currency"`
	MaxSupply   uint64 `json:"max_supply"`
	TotalMinted uint64 `json:"total_minted"`
	Tiers       uint64 `json:"tiers"`
	BaseURI     string `json:"base_uri"`
	Admin       string `json:"admin"`
}

// TierView is the wire form of a tier.
type TierView struct {
	ID           uint64      `json:"id"`
	Price        types.Money `json:"price"`
	DurationSecs uint64      `json:"duration_secs"`
	Active       bool        `json:"active"`
}

// TokenView is the wire form of a token.
type TokenView struct {
	ID        uint64    `json:"id"`
	Owner     string    `json:"owner"`
	Approved  string    `json:"approved,omitempty"`
	TierID    uint64    `json:"tier_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Active    bool      `json:"active"`
	URI       string    `json:"uri"`
}

// ──────────────────────────────────────────────────
// Handlers
// ──────────────────────────────────────────────────

func (h *Handler) info(w http.ResponseWriter, req bunrouter.Request) error {
	ctx := req.Context()
	return bunrouter.JSON(w, Info{
		Name:        h.engine.Name(),
		Symbol:      h.engine.Symbol(),
		Currency:    h.engine.Currency(),
		MaxSupply:   h.engine.MaxSupply(),
		TotalMinted: h.engine.TotalMinted(ctx),
		Tiers:       h.engine.TierCount(ctx),
		BaseURI:     h.engine.BaseURI(ctx),
		Admin:       h.engine.Admin().String(),
	})
}

func (h *Handler) listTiers(w http.ResponseWriter, req bunrouter.Request) error {
	tiers := h.engine.ListTiers(req.Context())
	out := make([]TierView, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, TierView{ID: t.ID, Price: t.Price, DurationSecs: t.DurationSeconds(), Active: t.Active})
	}
	return bunrouter.JSON(w, out)
}

func (h *Handler) getTier(w http.ResponseWriter, req bunrouter.Request) error {
	tierID, err := pathID(req)
	if err != nil {
		return err
	}
	t, err := h.engine.GetTier(req.Context(), tierID)
	if err != nil {
		return err
	}
	return bunrouter.JSON(w, TierView{ID: t.ID, Price: t.Price, DurationSecs: t.DurationSeconds(), Active: t.Active})
}

func (h *Handler) createTier(w http.ResponseWriter, req bunrouter.Request) error {
	var body TierRequest
	if err := decode(req, &body); err != nil {
		return err
	}

	d, err := seconds(body.DurationSecs)
	if err != nil {
		return err
	}

	tierID, err := h.engine.CreateTier(req.Context(), caller(req), h.engine.Price(uint64(body.Price)), d)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, bunrouter.H{"tier_id": tierID})
}

func (h *Handler) updateTier(w http.ResponseWriter, req bunrouter.Request) error {
	tierID, err := pathID(req)
	if err != nil {
		return err
	}
	var body TierRequest
	if err := decode(req, &body); err != nil {
		return err
	}
	if body.Active == nil {
		return fmt.Errorf("%w: active is required", membership.ErrInvalidInput)
	}
	d, err := seconds(body.DurationSecs)
	if err != nil {
		return err
	}

	if err := h.engine.UpdateTier(req.Context(), caller(req), tierID,
		h.engine.Price(uint64(body.Price)), d, *body.Active); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) purchase(w http.ResponseWriter, req bunrouter.Request) error {
	tierID, err := pathID(req)
	if err != nil {
		return err
	}
	var body PaymentRequest
	if err := decode(req, &body); err != nil {
		return err
	}

	tokenID, err := h.engine.Purchase(req.Context(), tierID, h.engine.Price(uint64(body.Paid)), caller(req))
	if err != nil {
		return err
	}

	view, err := h.tokenView(req, tokenID)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) renew(w http.ResponseWriter, req bunrouter.Request) error {
	tokenID, err := pathID(req)
	if err != nil {
		return err
	}
	var body PaymentRequest
	if err := decode(req, &body); err != nil {
		return err
	}

	if _, err := h.engine.Renew(req.Context(), tokenID, h.engine.Price(uint64(body.Paid)), caller(req)); err != nil {
		return err
	}

	view, err := h.tokenView(req, tokenID)
	if err != nil {
		return err
	}
	return bunrouter.JSON(w, view)
}

func (h *Handler) approve(w http.ResponseWriter, req bunrouter.Request) error {
	tokenID, err := pathID(req)
	if err != nil {
		return err
	}
	var body ApproveRequest
	if err := decode(req, &body); err != nil {
		return err
	}

	if err := h.engine.Approve(req.Context(), caller(req), tokenID, types.NewAddress(body.Operator)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) transfer(w http.ResponseWriter, req bunrouter.Request) error {
	tokenID, err := pathID(req)
	if err != nil {
		return err
	}
	var body TransferRequest
	if err := decode(req, &body); err != nil {
		return err
	}

	if err := h.engine.Transfer(req.Context(), caller(req), tokenID, types.NewAddress(body.To)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) getToken(w http.ResponseWriter, req bunrouter.Request) error {
	tokenID, err := pathID(req)
	if err != nil {
		return err
	}
	view, err := h.tokenView(req, tokenID)
	if err != nil {
		return err
	}
	return bunrouter.JSON(w, view)
}

func (h *Handler) member(w http.ResponseWriter, req bunrouter.Request) error {
	return bunrouter.JSON(w, h.engine.Verify(req.Context(), types.NewAddress(req.Param("address"))))
}

func (h *Handler) setBaseURI(w http.ResponseWriter, req bunrouter.Request) error {
	var body BaseURIRequest
	if err := decode(req, &body); err != nil {
		return err
	}
	if err := h.engine.SetBaseURI(req.Context(), caller(req), body.BaseURI); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) events(w http.ResponseWriter, req bunrouter.Request) error {
	q := req.URL.Query()
	opts := event.ListOpts{
		Type:  event.Type(q.Get("type")),
		Actor: types.NewAddress(q.Get("actor")),
	}

	var err error
	if opts.TokenID, err = queryID(q.Get("token_id"), "token_id"); err != nil {
		return err
	}
	if opts.TierID, err = queryID(q.Get("tier_id"), "tier_id"); err != nil {
		return err
	}
	if v := q.Get("after"); v != "" {
		if opts.AfterSeq, err = strconv.ParseUint(v, 10, 64); err != nil {
			return fmt.Errorf("%w: after: %q", membership.ErrInvalidInput, v)
		}
	}
	if v := q.Get("limit"); v != "" {
		if opts.Limit, err = strconv.Atoi(v); err != nil || opts.Limit < 0 {
			return fmt.Errorf("%w: limit: %q", membership.ErrInvalidInput, v)
		}
	}

	events, err := h.engine.Events(req.Context(), opts)
	if err != nil {
		return err
	}
	if events == nil {
		events = []*event.Event{}
	}
	return bunrouter.JSON(w, events)
}

func (h *Handler) tokenView(req bunrouter.Request, tokenID uint64) (TokenView, error) {
	ctx := req.Context()
	tok, err := h.engine.GetToken(ctx, tokenID)
	if err != nil {
		return TokenView{}, err
	}
	exp, err := h.engine.ExpirationOf(ctx, tokenID)
	if err != nil {
		return TokenView{}, err
	}
	active, err := h.engine.IsActive(ctx, tokenID)
	if err != nil {
		return TokenView{}, err
	}
	uri, err := h.engine.TokenURI(ctx, tokenID)
	if err != nil {
		return TokenView{}, err
	}
	return TokenView{
		ID:        tok.ID,
		Owner:     tok.Owner.String(),
		Approved:  tok.Approved.String(),
		TierID:    tok.TierID,
		ExpiresAt: exp,
		Active:    active,
		URI:       uri,
	}, nil
}

// ──────────────────────────────────────────────────
// Errors & helpers
// ──────────────────────────────────────────────────

func (h *Handler) errorMiddleware(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		err := next(w, req)
		if err == nil {
			return nil
		}

		status := StatusOf(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("membership api request failed",
				"method", req.Method,
				"route", req.Route(),
				"error", err,
			)
		}

		return writeJSON(w, status, bunrouter.H{"error": err.Error()})
	}
}

// StatusOf maps an engine error to an HTTP status code.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, membership.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, membership.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, membership.ErrInactiveTier), errors.Is(err, membership.ErrSupplyExhausted):
		return http.StatusConflict
	case errors.Is(err, membership.ErrWrongPrice):
		return http.StatusPaymentRequired
	case errors.Is(err, membership.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, membership.ErrNotStarted), errors.Is(err, membership.ErrStoreClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func caller(req bunrouter.Request) types.Address {
	return types.NewAddress(req.Header.Get(CallerHeader))
}

const maxDurationSecs = uint64(math.MaxInt64 / int64(time.Second))

func seconds(n uint64) (time.Duration, error) {
	if n > maxDurationSecs {
		return 0, fmt.Errorf("%w: duration_secs %d is out of range", membership.ErrInvalidInput, n)
	}
	return time.Duration(n) * time.Second, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func pathID(req bunrouter.Request) (uint64, error) {
	v, err := req.Params().Uint64("id")
	if err != nil {
		return 0, fmt.Errorf("%w: id: %q", membership.ErrInvalidInput, req.Param("id"))
	}
	return v, nil
}

func queryID(v, name string) (*uint64, error) {
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %q", membership.ErrInvalidInput, name, v)
	}
	return &n, nil
}

func decode(req bunrouter.Request, v any) error {
	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: request body: %v", membership.ErrInvalidInput, err)
	}
	return nil
}
