package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a ledger or faucet operation outcome.
type EventType string

const (
	EventBankInitialized EventType = "bank_initialized"
	EventBankStatusSet   EventType = "bank_status_changed"
	EventBankFunded      EventType = "bank_funds_added"
	EventAccountCreated  EventType = "account_created"
	EventAccountDeleted  EventType = "account_deleted"
	EventDeposit         EventType = "deposit"
	EventWithdraw        EventType = "withdraw"
	EventBalanceChecked  EventType = "balance_checked"
	EventStake           EventType = "stake"
	EventUnstake         EventType = "unstake"
	EventBorrow          EventType = "borrow"
	EventRepay           EventType = "repay"
	EventTransfer        EventType = "transfer"
	EventAirdrop         EventType = "airdrop"
)

// Event is the record emitted by every state-changing operation. Address is
// the primary account affected; Fields carries operation-specific values
// (amounts, rewards, counterparties) keyed by stable names.
type Event struct {
	ID      uuid.UUID      `json:"id"`
	Type    EventType      `json:"type"`
	Address string         `json:"address,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
	At      time.Time      `json:"at"`
}

// NewEvent constructs an event with a fresh ID. The publisher stamps At if
// left zero.
func NewEvent(eventType EventType, address string, fields map[string]any) Event {
	return Event{
		ID:      uuid.New(),
		Type:    eventType,
		Address: address,
		Fields:  fields,
	}
}
