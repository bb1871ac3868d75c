package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"devbank/internal/bank/models"
	"devbank/pkg/domain"
	dErrors "devbank/pkg/domain-errors"
	"devbank/pkg/platform/httputil"
	"devbank/pkg/requestcontext"
)

// Service defines the interface for bank ledger operations.
type Service interface {
	InitializeBank(ctx context.Context, admin domain.Address) (*models.Bank, error)
	Bank(ctx context.Context) (*models.Bank, error)
	SetOperational(ctx context.Context, operator domain.Address, operational bool) error
	FundBank(ctx context.Context, operator domain.Address, amount domain.Lamports) error

	CreateAccount(ctx context.Context, owner domain.Address) (*models.Account, error)
	DeleteAccount(ctx context.Context, owner domain.Address) error
	Balance(ctx context.Context, owner domain.Address) (*models.Account, error)
	Accounts(ctx context.Context) ([]*models.Account, error)

	Deposit(ctx context.Context, owner domain.Address, amount domain.Lamports) (*models.Account, error)
	Withdraw(ctx context.Context, owner domain.Address, amount domain.Lamports) (*models.Account, error)
	Stake(ctx context.Context, owner domain.Address, amount domain.Lamports) (*models.Account, error)
	Unstake(ctx context.Context, owner domain.Address, amount domain.Lamports) (*models.Account, error)
	Borrow(ctx context.Context, owner domain.Address, amount domain.Lamports) (*models.Account, error)
	Repay(ctx context.Context, owner domain.Address) (*models.Account, error)
	Transfer(ctx context.Context, from, to domain.Address, amount domain.Lamports) error
}

// Handler wires bank endpoints to the bank service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a bank handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts public bank endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/bank", h.HandleGetBank)
	r.Get("/accounts", h.HandleListAccounts)
	r.Post("/accounts", h.HandleCreateAccount)
	r.Route("/accounts/{address}", func(r chi.Router) {
		r.Delete("/", h.HandleDeleteAccount)
		r.Get("/balance", h.HandleBalance)
		r.Post("/deposit", h.amountOp("deposit", h.service.Deposit))
		r.Post("/withdraw", h.amountOp("withdraw", h.service.Withdraw))
		r.Post("/stake", h.amountOp("stake", h.service.Stake))
		r.Post("/unstake", h.amountOp("unstake", h.service.Unstake))
		r.Post("/borrow", h.amountOp("borrow", h.service.Borrow))
		r.Post("/repay", h.HandleRepay)
	})
	r.Post("/transfer", h.HandleTransfer)
}

// RegisterAdmin mounts admin endpoints; the router is expected to gate them
// behind operator authentication.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/bank", h.HandleInitializeBank)
	r.Post("/bank/status", h.HandleSetStatus)
	r.Post("/bank/fund", h.HandleFundBank)
}

// HandleInitializeBank handles POST /admin/bank requests.
func (h *Handler) HandleInitializeBank(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[InitializeBankRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	bank, err := h.service.InitializeBank(ctx, req.ParsedAdmin())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "bank initialized",
		"request_id", requestID,
		"admin", req.Admin,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromBank(bank))
}

// HandleGetBank handles GET /bank requests.
func (h *Handler) HandleGetBank(w http.ResponseWriter, r *http.Request) {
	bank, err := h.service.Bank(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromBank(bank))
}

// HandleSetStatus handles POST /admin/bank/status requests.
func (h *Handler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	operator, ok := h.operator(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SetStatusRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.SetOperational(ctx, operator, *req.Operational); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "bank status changed",
		"request_id", requestID,
		"operator", operator.String(),
		"operational", *req.Operational,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleFundBank handles POST /admin/bank/fund requests.
func (h *Handler) HandleFundBank(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	operator, ok := h.operator(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AmountRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.FundBank(ctx, operator, req.Lamports); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCreateAccount handles POST /accounts requests.
func (h *Handler) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[CreateAccountRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	account, err := h.service.CreateAccount(ctx, req.ParsedOwner())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "account created",
		"request_id", requestID,
		"owner", req.Owner,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromAccount(account))
}

// HandleDeleteAccount handles DELETE /accounts/{address} requests.
func (h *Handler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, ok := h.pathAddress(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteAccount(ctx, owner); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleBalance handles GET /accounts/{address}/balance requests.
func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.pathAddress(w, r)
	if !ok {
		return
	}
	account, err := h.service.Balance(r.Context(), owner)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAccount(account))
}

// HandleListAccounts handles GET /accounts requests.
func (h *Handler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.Accounts(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAccounts(accounts))
}

// HandleRepay handles POST /accounts/{address}/repay requests. Repay takes no
// body: the amount owed is computed from the loan.
func (h *Handler) HandleRepay(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.pathAddress(w, r)
	if !ok {
		return
	}
	account, err := h.service.Repay(r.Context(), owner)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAccount(account))
}

// HandleTransfer handles POST /transfer requests.
func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[TransferRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.Transfer(ctx, req.ParsedFrom(), req.ParsedTo(), req.Lamports); err != nil {
		h.logger.WarnContext(ctx, "transfer refused",
			"request_id", requestID,
			"from", req.From,
			"to", req.To,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type amountFunc func(ctx context.Context, owner domain.Address, amount domain.Lamports) (*models.Account, error)

// amountOp builds a handler for the account operations that take a lamport
// amount and return the updated account.
func (h *Handler) amountOp(op string, fn amountFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := requestcontext.RequestID(ctx)

		owner, ok := h.pathAddress(w, r)
		if !ok {
			return
		}
		req, ok := httputil.DecodeAndPrepare[AmountRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}

		account, err := fn(ctx, owner, req.Lamports)
		if err != nil {
			h.logger.WarnContext(ctx, "account operation refused",
				"request_id", requestID,
				"operation", op,
				"owner", owner.String(),
				"lamports", req.Lamports,
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, FromAccount(account))
	}
}

func (h *Handler) pathAddress(w http.ResponseWriter, r *http.Request) (domain.Address, bool) {
	address, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "address is invalid"))
		return domain.Address{}, false
	}
	return address, true
}

func (h *Handler) operator(w http.ResponseWriter, ctx context.Context) (domain.Address, bool) {
	raw := requestcontext.Operator(ctx)
	if raw == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "operator authentication required"))
		return domain.Address{}, false
	}
	operator, err := domain.ParseAddress(raw)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnauthorized, "operator identity is invalid"))
		return domain.Address{}, false
	}
	return operator, true
}
