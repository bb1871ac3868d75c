// Package handler exposes the faucet and chain endpoints over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"devbank/internal/chain"
	"devbank/internal/faucet"
	"devbank/pkg/domain"
	dErrors "devbank/pkg/domain-errors"
	"devbank/pkg/platform/httputil"
	"devbank/pkg/requestcontext"
)

// Service defines the interface for faucet operations.
type Service interface {
	RequestAirdrop(ctx context.Context, address domain.Address, lamports domain.Lamports) (*faucet.Drip, error)
	RecentDrips() []faucet.Drip
}

// ChainSource provides the latest block reference for GET /blockhash.
type ChainSource interface {
	Latest() chain.Ref
}

// Handler wires faucet endpoints to the faucet service.
type Handler struct {
	service Service
	chain   ChainSource
	logger  *slog.Logger
}

// New constructs a faucet handler with its dependencies.
func New(service Service, chainSrc ChainSource, logger *slog.Logger) *Handler {
	return &Handler{service: service, chain: chainSrc, logger: logger}
}

// Register mounts faucet endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/blockhash", h.HandleLatestBlockhash)
	r.Post("/airdrop", h.HandleRequestAirdrop)
	r.Get("/airdrops/recent", h.HandleRecentAirdrops)
}

// AirdropRequest is the HTTP request body for POST /airdrop.
type AirdropRequest struct {
	Address  string          `json:"address"`
	Lamports domain.Lamports `json:"lamports"`

	parsedAddress domain.Address
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *AirdropRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	address, err := domain.ParseAddress(r.Address)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "address is invalid")
	}
	r.parsedAddress = address
	return nil
}

// AirdropResponse is the HTTP response for POST /airdrop.
type AirdropResponse struct {
	Signature string    `json:"signature"`
	Address   string    `json:"address"`
	Lamports  uint64    `json:"lamports"`
	Blockhash string    `json:"blockhash"`
	Slot      uint64    `json:"slot"`
	At        time.Time `json:"at"`
}

// BlockhashResponse is the HTTP response for GET /blockhash.
type BlockhashResponse struct {
	Blockhash string `json:"blockhash"`
	Slot      uint64 `json:"slot"`
}

// RecentAirdropsResponse is the HTTP response for GET /airdrops/recent.
type RecentAirdropsResponse struct {
	Airdrops []*AirdropResponse `json:"airdrops"`
}

func fromDrip(drip *faucet.Drip) *AirdropResponse {
	return &AirdropResponse{
		Signature: drip.Signature.String(),
		Address:   drip.Address.String(),
		Lamports:  drip.Lamports,
		Blockhash: drip.Blockhash.String(),
		Slot:      drip.Slot,
		At:        drip.At,
	}
}

// HandleLatestBlockhash handles GET /blockhash requests.
func (h *Handler) HandleLatestBlockhash(w http.ResponseWriter, r *http.Request) {
	ref := h.chain.Latest()
	httputil.WriteJSON(w, http.StatusOK, &BlockhashResponse{
		Blockhash: ref.Blockhash.String(),
		Slot:      ref.Slot,
	})
}

// HandleRequestAirdrop handles POST /airdrop requests.
func (h *Handler) HandleRequestAirdrop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AirdropRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	drip, err := h.service.RequestAirdrop(ctx, req.parsedAddress, req.Lamports)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromDrip(drip))
}

// HandleRecentAirdrops handles GET /airdrops/recent requests.
func (h *Handler) HandleRecentAirdrops(w http.ResponseWriter, r *http.Request) {
	drips := h.service.RecentDrips()
	out := make([]*AirdropResponse, 0, len(drips))
	for i := range drips {
		out = append(out, fromDrip(&drips[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, &RecentAirdropsResponse{Airdrops: out})
}
