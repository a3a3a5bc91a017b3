package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cory-johannsen/waifu/internal/game/account"
)

// ErrUserNotFound is returned when a user lookup yields no results.
var ErrUserNotFound = errors.New("user not found")

// ErrInsufficientFunds is returned when a spend exceeds the balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Currency names a user balance column.
type Currency string

const (
	Coins       Currency = "coins"
	Gems        Currency = "gems"
	SkillPoints Currency = "skill_points"
)

func (c Currency) valid() bool {
	switch c {
	case Coins, Gems, SkillPoints:
		return true
	}
	return false
}

// ParseCurrency returns the Currency named s.
func ParseCurrency(s string) (Currency, bool) {
	c := Currency(s)
	return c, c.valid()
}

const userColumns = `id, telegram_id, username, coins, gems, account_xp, account_level, skill_points,
	pity_counter, daily_chat_coins, daily_reset_at, chat_streak, last_chat_at, created_at, updated_at`

// UserRepository provides user persistence operations.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a UserRepository backed by db.
//
// Precondition: db must be a valid, open pool or transaction.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// GetOrCreateByTelegramID returns the user for telegramID, creating it on
// first contact. A non-empty username replaces the stored one.
//
// Postcondition: Returns a persisted user with ID set.
func (r *UserRepository) GetOrCreateByTelegramID(ctx context.Context, telegramID int64, username string) (*account.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `
		INSERT INTO users (telegram_id, username) VALUES ($1, $2)
		ON CONFLICT (telegram_id) DO UPDATE SET
			username = CASE WHEN EXCLUDED.username <> '' THEN EXCLUDED.username ELSE users.username END
		RETURNING `+userColumns,
		telegramID, username,
	))
	if err != nil {
		return nil, fmt.Errorf("upserting user: %w", err)
	}
	return u, nil
}

// GetByID retrieves a user by internal id.
//
// Postcondition: Returns the user or ErrUserNotFound.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*account.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByIDForUpdate is GetByID with a row lock held until the enclosing
// transaction ends.
func (r *UserRepository) GetByIDForUpdate(ctx context.Context, id int64) (*account.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
}

// GetByTelegramID retrieves a user by Telegram id.
//
// Postcondition: Returns the user or ErrUserNotFound.
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*account.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID)
}

func (r *UserRepository) getOne(ctx context.Context, sql string, arg int64) (*account.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, sql, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return u, nil
}

// Spend deducts amount from the currency balance.
//
// Precondition: amount >= 0.
// Postcondition: Returns the new balance, ErrInsufficientFunds when the
// balance is short, or ErrUserNotFound.
func (r *UserRepository) Spend(ctx context.Context, id int64, cur Currency, amount int64) (int64, error) {
	if !cur.valid() {
		return 0, fmt.Errorf("unknown currency %q", cur)
	}
	var balance int64
	err := r.db.QueryRow(ctx, fmt.Sprintf(`
		UPDATE users SET %[1]s = %[1]s - $2, updated_at = NOW()
		WHERE id = $1 AND %[1]s >= $2
		RETURNING %[1]s`, cur),
		id, amount,
	).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("spending %s: %w", cur, err)
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("%w: %s", ErrInsufficientFunds, cur)
}

// Credit adds amount to the currency balance.
//
// Precondition: amount >= 0.
// Postcondition: Returns the new balance or ErrUserNotFound.
func (r *UserRepository) Credit(ctx context.Context, id int64, cur Currency, amount int64) (int64, error) {
	if !cur.valid() {
		return 0, fmt.Errorf("unknown currency %q", cur)
	}
	var balance int64
	err := r.db.QueryRow(ctx, fmt.Sprintf(`
		UPDATE users SET %[1]s = %[1]s + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING %[1]s`, cur),
		id, amount,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("crediting %s: %w", cur, err)
	}
	return balance, nil
}

// SavePity stores the pity counter.
func (r *UserRepository) SavePity(ctx context.Context, id int64, counter int) error {
	return r.exec(ctx, "saving pity counter",
		`UPDATE users SET pity_counter = $2, updated_at = NOW() WHERE id = $1`, id, counter)
}

// SaveProgress stores account xp, level and skill points.
func (r *UserRepository) SaveProgress(ctx context.Context, u *account.User) error {
	return r.exec(ctx, "saving account progress", `
		UPDATE users SET account_xp = $2, account_level = $3, skill_points = $4, updated_at = NOW()
		WHERE id = $1`,
		u.ID, u.AccountXP, u.AccountLevel, u.SkillPoints)
}

// SaveChatState stores the coin balance, chat counters and account progress
// produced by chat accrual.
func (r *UserRepository) SaveChatState(ctx context.Context, u *account.User) error {
	return r.exec(ctx, "saving chat state", `
		UPDATE users SET
			coins = $2, daily_chat_coins = $3, daily_reset_at = $4,
			chat_streak = $5, last_chat_at = $6,
			account_xp = $7, account_level = $8, skill_points = $9,
			updated_at = NOW()
		WHERE id = $1`,
		u.ID, u.Coins, u.DailyChatCoins, nullTime(u.DailyResetAt),
		u.ChatStreak, nullTime(u.LastChatAt),
		u.AccountXP, u.AccountLevel, u.SkillPoints)
}

func (r *UserRepository) exec(ctx context.Context, what, sql string, args ...any) error {
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*account.User, error) {
	var (
		u               account.User
		reset, lastChat *time.Time
	)
	if err := row.Scan(
		&u.ID, &u.TelegramID, &u.Username, &u.Coins, &u.Gems,
		&u.AccountXP, &u.AccountLevel, &u.SkillPoints,
		&u.PityCounter, &u.DailyChatCoins, &reset, &u.ChatStreak, &lastChat,
		&u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.DailyResetAt = fromNullTime(reset)
	u.LastChatAt = fromNullTime(lastChat)
	return &u, nil
}
