package service

import (
	"context"

	"devbank/internal/bank/models"
	"devbank/internal/bank/store"
	"devbank/pkg/domain"
	dErrors "devbank/pkg/domain-errors"
	"devbank/pkg/requestcontext"
)

// Transfer moves lamports between two accounts. Self-transfers are rejected.
func (s *Service) Transfer(ctx context.Context, from, to domain.Address, amount domain.Lamports) (err error) {
	defer func() { s.observe(ctx, "transfer", amount, err) }()

	if amount == 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "amount must be greater than zero")
	}
	if from == to {
		return dErrors.New(dErrors.CodeInvalidInput, "cannot transfer to the same account")
	}
	now := requestcontext.Now(ctx)

	err = s.store.Update(ctx, func(tx store.Tx) error {
		sender, err := s.loadAccount(tx, from)
		if err != nil {
			return err
		}
		recipient, err := s.loadAccount(tx, to)
		if err != nil {
			return err
		}
		if sender.Balance < amount {
			return insufficient()
		}
		if sender.Balance, err = subChecked(sender.Balance, amount); err != nil {
			return err
		}
		if recipient.Balance, err = addChecked(recipient.Balance, amount); err != nil {
			return err
		}
		sender.UpdatedAt = now
		recipient.UpdatedAt = now
		if err := tx.PutAccount(sender); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "save sender")
		}
		return tx.PutAccount(recipient)
	})
	if err != nil {
		return err
	}
	s.emit(ctx, models.EventTransfer, from, map[string]any{
		"to":     to.String(),
		"amount": amount,
	})
	return nil
}
