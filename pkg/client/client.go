// Package client is a small typed client for the devbank HTTP API. It covers
// the devnet workflow: fetch the latest blockhash, request an airdrop, and
// check the resulting balance.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"devbank/pkg/domain"
	dErrors "devbank/pkg/domain-errors"
)

const defaultTimeout = 30 * time.Second

// Client talks to a devbank server.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithOperatorToken attaches a bearer token to every request, enabling the
// admin endpoints.
func WithOperatorToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Blockhash is the latest block reference reported by the server.
type Blockhash struct {
	Blockhash domain.Blockhash
	Slot      uint64
}

// Airdrop is a completed faucet drip.
type Airdrop struct {
	Signature domain.Signature
	Lamports  domain.Lamports
	Blockhash domain.Blockhash
	Slot      uint64
}

// Account mirrors the server's account representation.
type Account struct {
	Owner         string     `json:"owner"`
	Balance       uint64     `json:"balance"`
	StakedBalance uint64     `json:"staked_balance"`
	LentBalance   uint64     `json:"lent_balance"`
	LoanTime      *time.Time `json:"loan_time,omitempty"`
}

// Bank mirrors the server's bank representation.
type Bank struct {
	Admin       string `json:"admin"`
	Balance     uint64 `json:"balance"`
	TotalUsers  uint64 `json:"total_users"`
	Operational bool   `json:"operational"`
}

// LatestBlockhash fetches the current blockhash and slot.
func (c *Client) LatestBlockhash(ctx context.Context) (*Blockhash, error) {
	var resp struct {
		Blockhash string `json:"blockhash"`
		Slot      uint64 `json:"slot"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/blockhash", nil, &resp); err != nil {
		return nil, err
	}
	hash, err := domain.ParseBlockhash(resp.Blockhash)
	if err != nil {
		return nil, fmt.Errorf("parse blockhash: %w", err)
	}
	return &Blockhash{Blockhash: hash, Slot: resp.Slot}, nil
}

// RequestAirdrop asks the faucet to credit lamports to the address and
// returns the minted signature.
func (c *Client) RequestAirdrop(ctx context.Context, address domain.Address, lamports domain.Lamports) (*Airdrop, error) {
	req := map[string]any{
		"address":  address.String(),
		"lamports": lamports,
	}
	var resp struct {
		Signature string `json:"signature"`
		Lamports  uint64 `json:"lamports"`
		Blockhash string `json:"blockhash"`
		Slot      uint64 `json:"slot"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/airdrop", req, &resp); err != nil {
		return nil, err
	}
	sig, err := domain.ParseSignature(resp.Signature)
	if err != nil {
		return nil, fmt.Errorf("parse signature: %w", err)
	}
	hash, err := domain.ParseBlockhash(resp.Blockhash)
	if err != nil {
		return nil, fmt.Errorf("parse blockhash: %w", err)
	}
	return &Airdrop{Signature: sig, Lamports: resp.Lamports, Blockhash: hash, Slot: resp.Slot}, nil
}

// Balance fetches the account for the address.
func (c *Client) Balance(ctx context.Context, address domain.Address) (*Account, error) {
	var account Account
	if err := c.do(ctx, http.MethodGet, "/v1/accounts/"+address.String()+"/balance", nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// GetBank fetches the bank ledger snapshot.
func (c *Client) GetBank(ctx context.Context) (*Bank, error) {
	var bank Bank
	if err := c.do(ctx, http.MethodGet, "/v1/bank", nil, &bank); err != nil {
		return nil, err
	}
	return &bank, nil
}

// InitializeBank creates the bank. Requires an operator token.
func (c *Client) InitializeBank(ctx context.Context, admin domain.Address) (*Bank, error) {
	var bank Bank
	err := c.do(ctx, http.MethodPost, "/v1/bank", map[string]any{"admin": admin.String()}, &bank)
	if err != nil {
		return nil, err
	}
	return &bank, nil
}

// CreateAccount registers an account with the bank.
func (c *Client) CreateAccount(ctx context.Context, owner domain.Address) (*Account, error) {
	var account Account
	err := c.do(ctx, http.MethodPost, "/v1/accounts", map[string]any{"owner": owner.String()}, &account)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Deposit moves lamports from the account's wallet balance into the bank.
func (c *Client) Deposit(ctx context.Context, owner domain.Address, lamports domain.Lamports) (*Account, error) {
	return c.amountOp(ctx, owner, "deposit", lamports)
}

// Withdraw moves lamports back out of the bank.
func (c *Client) Withdraw(ctx context.Context, owner domain.Address, lamports domain.Lamports) (*Account, error) {
	return c.amountOp(ctx, owner, "withdraw", lamports)
}

// Stake locks lamports into the staking position.
func (c *Client) Stake(ctx context.Context, owner domain.Address, lamports domain.Lamports) (*Account, error) {
	return c.amountOp(ctx, owner, "stake", lamports)
}

// Unstake releases staked lamports plus accrued reward.
func (c *Client) Unstake(ctx context.Context, owner domain.Address, lamports domain.Lamports) (*Account, error) {
	return c.amountOp(ctx, owner, "unstake", lamports)
}

// Borrow opens a loan against the account's collateral.
func (c *Client) Borrow(ctx context.Context, owner domain.Address, lamports domain.Lamports) (*Account, error) {
	return c.amountOp(ctx, owner, "borrow", lamports)
}

// Repay settles the account's loan with interest.
func (c *Client) Repay(ctx context.Context, owner domain.Address) (*Account, error) {
	var account Account
	err := c.do(ctx, http.MethodPost, "/v1/accounts/"+owner.String()+"/repay", nil, &account)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Transfer moves lamports between two accounts.
func (c *Client) Transfer(ctx context.Context, from, to domain.Address, lamports domain.Lamports) error {
	return c.do(ctx, http.MethodPost, "/v1/transfer", map[string]any{
		"from":     from.String(),
		"to":       to.String(),
		"lamports": lamports,
	}, nil)
}

func (c *Client) amountOp(ctx context.Context, owner domain.Address, op string, lamports domain.Lamports) (*Account, error) {
	var account Account
	path := fmt.Sprintf("/v1/accounts/%s/%s", owner, op)
	if err := c.do(ctx, http.MethodPost, path, map[string]any{"lamports": lamports}, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	StatusCode  int
	Code        dErrors.Code
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("devbank: %s: %s (http %d)", e.Code, e.Description, e.StatusCode)
	}
	return fmt.Sprintf("devbank: %s (http %d)", e.Code, e.StatusCode)
}

func (c *Client) do(ctx context.Context, method, path string, reqBody, respBody any) error {
	var body io.Reader
	if reqBody != nil {
		buf, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if respBody == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Code: dErrors.CodeInternal}
	var envelope struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error != "" {
		apiErr.Code = dErrors.Code(envelope.Error)
		apiErr.Description = envelope.Description
	}
	return apiErr
}
