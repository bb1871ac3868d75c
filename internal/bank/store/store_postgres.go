package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "embed"

	"github.com/lib/pq"

	"devbank/internal/bank/models"
	"devbank/pkg/domain"
	platformtx "devbank/pkg/platform/tx"
	"devbank/pkg/platform/sentinel"
)

//go:embed schema.sql
var schemaSQL string

// PostgresStore persists the ledger in PostgreSQL. All Update calls run in a
// serializable-enough transaction: rows are locked FOR UPDATE on read so
// concurrent mutations of the same account serialize at the database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed ledger store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies the ledger schema. Idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply ledger schema: %w", err)
	}
	return nil
}

// View implements Store.
func (s *PostgresStore) View(ctx context.Context, fn func(Tx) error) error {
	return s.run(ctx, false, fn)
}

// Update implements Store.
func (s *PostgresStore) Update(ctx context.Context, fn func(Tx) error) error {
	return s.run(ctx, true, fn)
}

func (s *PostgresStore) run(ctx context.Context, writable bool, fn func(Tx) error) error {
	// Reuse a transaction placed in context by a caller coordinating a
	// wider unit of work; otherwise open our own.
	if outer, ok := platformtx.From(ctx); ok {
		return fn(&pgTx{ctx: ctx, tx: outer, writable: writable})
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: !writable})
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	if err := fn(&pgTx{ctx: ctx, tx: tx, writable: writable}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}

type pgTx struct {
	ctx      context.Context
	tx       *sql.Tx
	writable bool
}

func (t *pgTx) lockClause() string {
	if t.writable {
		return " FOR UPDATE"
	}
	return ""
}

func (t *pgTx) Bank() (*models.Bank, error) {
	row := t.tx.QueryRowContext(t.ctx, `
		SELECT admin, balance, staked_balance, lent_balance, total_users, operational, created_at, updated_at
		FROM bank`+t.lockClause())

	var (
		bank                  models.Bank
		admin                 string
		balance, staked, lent string
	)
	err := row.Scan(&admin, &balance, &staked, &lent, &bank.TotalUsers, &bank.Operational, &bank.CreatedAt, &bank.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load bank: %w", err)
	}
	if bank.Admin, err = domain.ParseAddress(admin); err != nil {
		return nil, fmt.Errorf("decode bank admin: %w", err)
	}
	if bank.Balance, err = parseLamports(balance); err != nil {
		return nil, err
	}
	if bank.StakedBalance, err = parseLamports(staked); err != nil {
		return nil, err
	}
	if bank.LentBalance, err = parseLamports(lent); err != nil {
		return nil, err
	}
	return &bank, nil
}

func (t *pgTx) PutBank(bank *models.Bank) error {
	if !t.writable {
		return sentinel.ErrReadOnly
	}
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO bank (singleton, admin, balance, staked_balance, lent_balance, total_users, operational, created_at, updated_at)
		VALUES (TRUE, $1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (singleton) DO UPDATE SET
			admin = EXCLUDED.admin,
			balance = EXCLUDED.balance,
			staked_balance = EXCLUDED.staked_balance,
			lent_balance = EXCLUDED.lent_balance,
			total_users = EXCLUDED.total_users,
			operational = EXCLUDED.operational,
			updated_at = EXCLUDED.updated_at`,
		bank.Admin.String(),
		formatLamports(bank.Balance),
		formatLamports(bank.StakedBalance),
		formatLamports(bank.LentBalance),
		bank.TotalUsers,
		bank.Operational,
		bank.CreatedAt,
		bank.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save bank: %w", err)
	}
	return nil
}

func (t *pgTx) Account(owner domain.Address) (*models.Account, error) {
	row := t.tx.QueryRowContext(t.ctx, `
		SELECT owner, balance, staked_balance, stake_slot, lent_balance, loan_time, created_at, updated_at
		FROM accounts WHERE owner = $1`+t.lockClause(),
		owner.String())
	return scanAccount(row)
}

func (t *pgTx) PutAccount(account *models.Account) error {
	if !t.writable {
		return sentinel.ErrReadOnly
	}
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO accounts (owner, balance, staked_balance, stake_slot, lent_balance, loan_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (owner) DO UPDATE SET
			balance = EXCLUDED.balance,
			staked_balance = EXCLUDED.staked_balance,
			stake_slot = EXCLUDED.stake_slot,
			lent_balance = EXCLUDED.lent_balance,
			loan_time = EXCLUDED.loan_time,
			updated_at = EXCLUDED.updated_at`,
		account.Owner.String(),
		formatLamports(account.Balance),
		formatLamports(account.StakedBalance),
		account.StakeSlot,
		formatLamports(account.LentBalance),
		nullTime(account.LoanTime),
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "check_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

func (t *pgTx) DeleteAccount(owner domain.Address) error {
	if !t.writable {
		return sentinel.ErrReadOnly
	}
	res, err := t.tx.ExecContext(t.ctx, `DELETE FROM accounts WHERE owner = $1`, owner.String())
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (t *pgTx) Accounts() ([]*models.Account, error) {
	rows, err := t.tx.QueryContext(t.ctx, `
		SELECT owner, balance, staked_balance, stake_slot, lent_balance, loan_time, created_at, updated_at
		FROM accounts ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		account               models.Account
		owner                 string
		balance, staked, lent string
		loanTime              sql.NullTime
	)
	err := row.Scan(&owner, &balance, &staked, &account.StakeSlot, &lent, &loanTime, &account.CreatedAt, &account.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if account.Owner, err = domain.ParseAddress(owner); err != nil {
		return nil, fmt.Errorf("decode account owner: %w", err)
	}
	if account.Balance, err = parseLamports(balance); err != nil {
		return nil, err
	}
	if account.StakedBalance, err = parseLamports(staked); err != nil {
		return nil, err
	}
	if account.LentBalance, err = parseLamports(lent); err != nil {
		return nil, err
	}
	if loanTime.Valid {
		account.LoanTime = loanTime.Time
	}
	return &account, nil
}

// Lamport columns are NUMERIC(20) so the full uint64 range fits; values cross
// the driver as strings.
func parseLamports(value string) (domain.Lamports, error) {
	amount, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode lamports %q: %w", value, err)
	}
	return amount, nil
}

func formatLamports(amount domain.Lamports) string {
	return strconv.FormatUint(amount, 10)
}

func nullTime(value time.Time) sql.NullTime {
	if value.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: value, Valid: true}
}
