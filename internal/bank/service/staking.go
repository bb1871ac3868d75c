package service

import (
	"context"

	"devbank/internal/bank/models"
	"devbank/internal/bank/store"
	"devbank/pkg/checked"
	"devbank/pkg/domain"
	dErrors "devbank/pkg/domain-errors"
	"devbank/pkg/requestcontext"
)

// Stake moves lamports from an account's balance into its stake position. If
// a position already exists, the reward accrued so far is settled into the
// balance first (paid by the bank) and the position's slot resets to now.
func (s *Service) Stake(ctx context.Context, owner domain.Address, amount domain.Lamports) (account *models.Account, err error) {
	defer func() { s.observe(ctx, "stake", amount, err) }()

	if amount == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "amount must be greater than zero")
	}
	now := requestcontext.Now(ctx)
	currentSlot := s.slots.CurrentSlot()
	var settled domain.Lamports

	err = s.store.Update(ctx, func(tx store.Tx) error {
		bank, err := s.loadBank(tx)
		if err != nil {
			return err
		}
		if !bank.Operational {
			return bankClosed()
		}
		account, err = s.loadAccount(tx, owner)
		if err != nil {
			return err
		}
		if account.Balance < amount {
			return insufficient()
		}

		if account.StakedBalance > 0 {
			reward, err := stakingReward(account.StakedBalance, currentSlot, account.StakeSlot)
			if err != nil {
				return err
			}
			if reward > 0 {
				if bank.Balance < reward {
					return dErrors.New(dErrors.CodeBankInsufficient, "bank cannot pay staking reward")
				}
				if account.Balance, err = addChecked(account.Balance, reward); err != nil {
					return err
				}
				if bank.Balance, err = subChecked(bank.Balance, reward); err != nil {
					return err
				}
				settled = reward
			}
		}

		account.StakeSlot = currentSlot
		if account.Balance, err = subChecked(account.Balance, amount); err != nil {
			return err
		}
		if account.StakedBalance, err = addChecked(account.StakedBalance, amount); err != nil {
			return err
		}
		if bank.StakedBalance, err = addChecked(bank.StakedBalance, amount); err != nil {
			return err
		}

		account.UpdatedAt = now
		bank.UpdatedAt = now
		if err := tx.PutBank(bank); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "save bank")
		}
		return tx.PutAccount(account)
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, models.EventStake, owner, map[string]any{
		"amount":         amount,
		"settled_reward": settled,
		"total_staked":   account.StakedBalance,
	})
	return account, nil
}

// Unstake returns lamports from the stake position to the balance along with
// the reward accrued on the unstaked amount since the position's slot.
func (s *Service) Unstake(ctx context.Context, owner domain.Address, amount domain.Lamports) (account *models.Account, err error) {
	defer func() { s.observe(ctx, "unstake", amount, err) }()

	if amount == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "amount must be greater than zero")
	}
	now := requestcontext.Now(ctx)
	currentSlot := s.slots.CurrentSlot()
	var reward domain.Lamports

	err = s.store.Update(ctx, func(tx store.Tx) error {
		bank, err := s.loadBank(tx)
		if err != nil {
			return err
		}
		account, err = s.loadAccount(tx, owner)
		if err != nil {
			return err
		}
		if account.StakedBalance < amount {
			return insufficient()
		}

		reward, err = stakingReward(amount, currentSlot, account.StakeSlot)
		if err != nil {
			return err
		}
		if bank.Balance < reward {
			return dErrors.New(dErrors.CodeBankInsufficient, "bank cannot pay staking reward")
		}

		if account.StakedBalance, err = subChecked(account.StakedBalance, amount); err != nil {
			return err
		}
		if account.Balance, err = addChecked(account.Balance, amount); err != nil {
			return err
		}
		if account.Balance, err = addChecked(account.Balance, reward); err != nil {
			return err
		}
		if bank.StakedBalance, err = subChecked(bank.StakedBalance, amount); err != nil {
			return err
		}
		if bank.Balance, err = subChecked(bank.Balance, reward); err != nil {
			return err
		}

		account.UpdatedAt = now
		bank.UpdatedAt = now
		if err := tx.PutBank(bank); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "save bank")
		}
		return tx.PutAccount(account)
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, models.EventUnstake, owner, map[string]any{
		"amount":           amount,
		"reward":           reward,
		"remaining_staked": account.StakedBalance,
	})
	return account, nil
}

// stakingReward computes the reward for a staked amount between stakeSlot and
// currentSlot: amount * APY_bp * slots / 10000 / slots_per_year.
func stakingReward(staked domain.Lamports, currentSlot, stakeSlot uint64) (domain.Lamports, error) {
	slots, ok := checked.Sub(currentSlot, stakeSlot)
	if !ok {
		return 0, overflow()
	}
	reward, ok := checked.Mul(staked, models.StakingAPYBasisPoints)
	if !ok {
		return 0, overflow()
	}
	if reward, ok = checked.Mul(reward, slots); !ok {
		return 0, overflow()
	}
	if reward, ok = checked.Div(reward, models.BasisPointsDivisor); !ok {
		return 0, overflow()
	}
	if reward, ok = checked.Div(reward, models.SlotsPerYear); !ok {
		return 0, overflow()
	}
	return reward, nil
}

func addChecked(a, b domain.Lamports) (domain.Lamports, error) {
	sum, ok := checked.Add(a, b)
	if !ok {
		return 0, overflow()
	}
	return sum, nil
}

func subChecked(a, b domain.Lamports) (domain.Lamports, error) {
	diff, ok := checked.Sub(a, b)
	if !ok {
		return 0, overflow()
	}
	return diff, nil
}
