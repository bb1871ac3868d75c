// Package faucet credits test lamports to any address on request. Drips are
// rate limited per recipient over a sliding window; lamports are minted, not
// drawn from the bank's balance sheet.
package faucet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"devbank/internal/bank/models"
	"devbank/internal/bank/store"
	"devbank/internal/chain"
	"devbank/internal/faucet/metrics"
	"devbank/internal/faucet/ratelimit"
	"devbank/pkg/checked"
	"devbank/pkg/domain"
	dErrors "devbank/pkg/domain-errors"
	"devbank/pkg/platform/sentinel"
	"devbank/pkg/requestcontext"
)

// Defaults applied when config leaves fields zero.
const (
	DefaultMaxDrip    = 2 * domain.LamportsPerToken
	DefaultDripLimit  = 5
	DefaultDripWindow = time.Hour

	recentDripCap = 64
)

// ChainSource provides the blockhash a drip is recorded against.
type ChainSource interface {
	Latest() chain.Ref
}

// EventPublisher receives the event emitted by each completed airdrop.
type EventPublisher interface {
	Emit(ctx context.Context, event models.Event)
}

// Config bounds faucet generosity.
type Config struct {
	// MaxDrip is the largest single airdrop in lamports.
	MaxDrip domain.Lamports
	// DripLimit is how many airdrops one address may take per DripWindow.
	DripLimit int
	// DripWindow is the sliding window for DripLimit.
	DripWindow time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxDrip == 0 {
		c.MaxDrip = DefaultMaxDrip
	}
	if c.DripLimit == 0 {
		c.DripLimit = DefaultDripLimit
	}
	if c.DripWindow == 0 {
		c.DripWindow = DefaultDripWindow
	}
	return c
}

// Drip is a completed airdrop.
type Drip struct {
	Signature domain.Signature
	Address   domain.Address
	Lamports  domain.Lamports
	Blockhash domain.Blockhash
	Slot      uint64
	At        time.Time
}

// Service handles airdrop requests.
type Service struct {
	cfg     Config
	ledger  store.Store
	chain   ChainSource
	limiter ratelimit.Store
	events  EventPublisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer

	mu     sync.Mutex
	recent []Drip // newest first, capped
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithEvents sets the event publisher.
func WithEvents(events EventPublisher) Option {
	return func(s *Service) { s.events = events }
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs a faucet service.
func New(cfg Config, ledger store.Store, chainSrc ChainSource, limiter ratelimit.Store, opts ...Option) (*Service, error) {
	if ledger == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	if chainSrc == nil {
		return nil, fmt.Errorf("chain source is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limit store is required")
	}
	svc := &Service{
		cfg:     cfg.withDefaults(),
		ledger:  ledger,
		chain:   chainSrc,
		limiter: limiter,
		logger:  slog.Default(),
		tracer:  otel.Tracer("devbank/faucet"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// RequestAirdrop credits lamports to the address, creating the account if it
// does not exist, and returns the minted transaction signature.
func (s *Service) RequestAirdrop(ctx context.Context, address domain.Address, lamports domain.Lamports) (drip *Drip, err error) {
	ctx, span := s.tracer.Start(ctx, "faucet.RequestAirdrop",
		trace.WithAttributes(
			attribute.String("faucet.address", address.String()),
			attribute.Int64("faucet.lamports", int64(lamports)),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
		s.observe(ctx, address, lamports, err)
	}()

	if lamports == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "lamports must be greater than zero")
	}
	if lamports > s.cfg.MaxDrip {
		return nil, dErrors.New(dErrors.CodeAmountTooLarge,
			fmt.Sprintf("airdrop exceeds maximum of %d lamports", s.cfg.MaxDrip))
	}

	limit, err := s.limiter.Allow(ctx, address.String(), s.cfg.DripLimit, s.cfg.DripWindow)
	if err != nil {
		// A broken limiter closes the tap rather than opening it.
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check drip limit")
	}
	if !limit.Allowed {
		return nil, dErrors.New(dErrors.CodeRateLimited,
			fmt.Sprintf("drip limit reached, resets at %s", limit.ResetAt.UTC().Format(time.RFC3339)))
	}

	now := requestcontext.Now(ctx)
	ref := s.chain.Latest()

	ctx, creditSpan := s.tracer.Start(ctx, "faucet.credit")
	err = s.ledger.Update(ctx, func(tx store.Tx) error {
		account, err := tx.Account(address)
		if errors.Is(err, sentinel.ErrNotFound) {
			account = &models.Account{Owner: address, CreatedAt: now}
		} else if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "load account")
		}
		balance, ok := checked.Add(account.Balance, lamports)
		if !ok {
			return dErrors.New(dErrors.CodeArithmeticOverflow, "balance overflow")
		}
		account.Balance = balance
		account.UpdatedAt = now
		return tx.PutAccount(account)
	})
	creditSpan.End()
	if err != nil {
		return nil, err
	}

	drip = &Drip{
		Signature: domain.NewSignature(),
		Address:   address,
		Lamports:  lamports,
		Blockhash: ref.Blockhash,
		Slot:      ref.Slot,
		At:        now,
	}
	s.remember(*drip)

	if s.events != nil {
		s.events.Emit(ctx, models.NewEvent(models.EventAirdrop, address.String(), map[string]any{
			"lamports":  lamports,
			"signature": drip.Signature.String(),
			"slot":      drip.Slot,
		}))
	}
	return drip, nil
}

// RecentDrips returns the most recent airdrops, newest first.
func (s *Service) RecentDrips() []Drip {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Drip, len(s.recent))
	copy(out, s.recent)
	return out
}

func (s *Service) remember(drip Drip) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append([]Drip{drip}, s.recent...)
	if len(s.recent) > recentDripCap {
		s.recent = s.recent[:recentDripCap]
	}
}

func (s *Service) observe(ctx context.Context, address domain.Address, lamports domain.Lamports, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case dErrors.HasCode(err, dErrors.CodeRateLimited):
		outcome = "rate_limited"
	default:
		outcome = "error"
	}
	s.metrics.ObserveAirdrop(outcome, lamports)

	if err != nil {
		s.logger.WarnContext(ctx, "airdrop refused",
			"address", address.String(),
			"lamports", lamports,
			"error", err,
			"client_ip", requestcontext.ClientIP(ctx),
			"request_id", requestcontext.RequestID(ctx),
		)
		return
	}
	s.logger.InfoContext(ctx, "airdrop completed",
		"address", address.String(),
		"lamports", lamports,
		"request_id", requestcontext.RequestID(ctx),
	)
}
