package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cory-johannsen/waifu/internal/game/character"
)

// ErrCharacterNotFound is returned when a character lookup yields no results.
var ErrCharacterNotFound = errors.New("character not found")

// ErrCardNumberTaken is returned when inserting a character whose card number already exists.
var ErrCardNumberTaken = errors.New("card number already taken")

const characterColumns = `id, card_number, owner_id, name, rarity, race, profession, nationality,
	level, experience, power, charm, luck, affection, intellect, speed,
	energy, max_energy, mood, loyalty, bond, last_restore, energy_carry,
	image_url, tags, is_active, is_favorite, created_at, updated_at`

// CharacterRepository provides character persistence operations.
type CharacterRepository struct {
	db DBTX
}

// NewCharacterRepository creates a CharacterRepository backed by db.
//
// Precondition: db must be a valid, open pool or transaction.
func NewCharacterRepository(db DBTX) *CharacterRepository {
	return &CharacterRepository{db: db}
}

// NextCardNumber draws the next value of the card number sequence.
//
// Postcondition: Returns a value strictly greater than every previous draw.
func (r *CharacterRepository) NextCardNumber(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT nextval('card_number_seq')`).Scan(&n); err != nil {
		return 0, fmt.Errorf("drawing card number: %w", err)
	}
	return n, nil
}

// Create inserts c and returns it with ID and timestamps set. A zero
// CardNumber is drawn from the sequence.
//
// Postcondition: Returns the created character, or ErrCardNumberTaken on duplicate.
func (r *CharacterRepository) Create(ctx context.Context, c *character.Character) (*character.Character, error) {
	if c.CardNumber == 0 {
		n, err := r.NextCardNumber(ctx)
		if err != nil {
			return nil, err
		}
		c.CardNumber = n
	}
	energy, maxEnergy, mood, loyalty, bond, last := dynamicArgs(c.Dynamic)
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO characters
			(card_number, owner_id, name, rarity, race, profession, nationality,
			 level, experience, power, charm, luck, affection, intellect, speed,
			 energy, max_energy, mood, loyalty, bond, last_restore, energy_carry,
			 image_url, tags, is_active, is_favorite)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26)
		RETURNING `+characterColumns,
		c.CardNumber, c.OwnerID, c.Name, c.Rarity.String(), c.Race, c.Profession, c.Nationality,
		c.Level, c.Experience,
		c.Stats.Power, c.Stats.Charm, c.Stats.Luck, c.Stats.Affection, c.Stats.Intellect, c.Stats.Speed,
		energy, maxEnergy, mood, loyalty, bond, last, energyCarry(c.Dynamic),
		c.ImageURL, tags, c.IsActive, c.IsFavorite,
	)
	out, err := scanCharacter(row)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrCardNumberTaken
		}
		return nil, fmt.Errorf("inserting character: %w", err)
	}
	return out, nil
}

// GetByID retrieves a character by its primary key.
//
// Postcondition: Returns the Character or ErrCharacterNotFound.
func (r *CharacterRepository) GetByID(ctx context.Context, id int64) (*character.Character, error) {
	return r.getOne(ctx, `SELECT `+characterColumns+` FROM characters WHERE id = $1`, id)
}

// GetByIDForUpdate is GetByID with a row lock held until the enclosing
// transaction ends.
func (r *CharacterRepository) GetByIDForUpdate(ctx context.Context, id int64) (*character.Character, error) {
	return r.getOne(ctx, `SELECT `+characterColumns+` FROM characters WHERE id = $1 FOR UPDATE`, id)
}

func (r *CharacterRepository) getOne(ctx context.Context, sql string, id int64) (*character.Character, error) {
	c, err := scanCharacter(r.db.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCharacterNotFound
		}
		return nil, fmt.Errorf("querying character: %w", err)
	}
	return c, nil
}

// ListByOwner returns the owner's characters, favorites first, then by card number.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *CharacterRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*character.Character, error) {
	return r.list(ctx, `SELECT `+characterColumns+` FROM characters
		WHERE owner_id = $1 ORDER BY is_favorite DESC, card_number ASC`, ownerID)
}

// ListAllForRestore returns every character for a restoration sweep.
func (r *CharacterRepository) ListAllForRestore(ctx context.Context) ([]*character.Character, error) {
	return r.list(ctx, `SELECT `+characterColumns+` FROM characters ORDER BY id`)
}

func (r *CharacterRepository) list(ctx context.Context, sql string, args ...any) ([]*character.Character, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing characters: %w", err)
	}
	defer rows.Close()

	chars := make([]*character.Character, 0)
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning character row: %w", err)
		}
		chars = append(chars, c)
	}
	return chars, rows.Err()
}

// SaveProgress persists level, experience, stats and dynamic state.
//
// Postcondition: Returns nil on success, ErrCharacterNotFound if no row updated.
func (r *CharacterRepository) SaveProgress(ctx context.Context, c *character.Character) error {
	energy, maxEnergy, mood, loyalty, bond, last := dynamicArgs(c.Dynamic)
	tag, err := r.db.Exec(ctx, `
		UPDATE characters SET
			level = $2, experience = $3,
			power = $4, charm = $5, luck = $6, affection = $7, intellect = $8, speed = $9,
			energy = $10, max_energy = $11, mood = $12, loyalty = $13, bond = $14, last_restore = $15,
			energy_carry = $16, updated_at = NOW()
		WHERE id = $1`,
		c.ID, c.Level, c.Experience,
		c.Stats.Power, c.Stats.Charm, c.Stats.Luck, c.Stats.Affection, c.Stats.Intellect, c.Stats.Speed,
		energy, maxEnergy, mood, loyalty, bond, last, energyCarry(c.Dynamic),
	)
	if err != nil {
		return fmt.Errorf("saving character progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCharacterNotFound
	}
	return nil
}

// SaveDynamicBatch writes only the restorable dynamic columns of every
// character in one round trip. Rows deleted since they were read are skipped.
func (r *CharacterRepository) SaveDynamicBatch(ctx context.Context, chars []*character.Character) error {
	if len(chars) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, c := range chars {
		energy, maxEnergy, mood, loyalty, bond, last := dynamicArgs(c.Dynamic)
		b.Queue(`
			UPDATE characters SET
				energy = $2, max_energy = $3, mood = $4, loyalty = $5,
				bond = COALESCE(bond, $6), last_restore = $7, energy_carry = $8
			WHERE id = $1`,
			c.ID, energy, maxEnergy, mood, loyalty, bond, last, energyCarry(c.Dynamic),
		)
	}
	br := r.db.SendBatch(ctx, b)
	for range chars {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("saving dynamic batch: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("closing dynamic batch: %w", err)
	}
	return nil
}

// SetFavorite sets the favorite flag on a character the owner holds.
//
// Postcondition: Returns ErrCharacterNotFound if the owner does not hold id.
func (r *CharacterRepository) SetFavorite(ctx context.Context, id, ownerID int64, favorite bool) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE characters SET is_favorite = $3, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2`,
		id, ownerID, favorite,
	)
	if err != nil {
		return fmt.Errorf("setting favorite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCharacterNotFound
	}
	return nil
}

// SetActive makes id the owner's single active character.
//
// Precondition: Should run inside WithTx so the swap is atomic.
// Postcondition: Returns ErrCharacterNotFound if the owner does not hold id.
func (r *CharacterRepository) SetActive(ctx context.Context, id, ownerID int64) error {
	if _, err := r.db.Exec(ctx, `
		UPDATE characters SET is_active = FALSE, updated_at = NOW()
		WHERE owner_id = $1 AND is_active AND id <> $2`,
		ownerID, id,
	); err != nil {
		return fmt.Errorf("clearing active character: %w", err)
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE characters SET is_active = TRUE, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("setting active character: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCharacterNotFound
	}
	return nil
}

// DistinctRaces returns how many different races the owner holds.
func (r *CharacterRepository) DistinctRaces(ctx context.Context, ownerID int64) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(DISTINCT race) FROM characters WHERE owner_id = $1`, ownerID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting races: %w", err)
	}
	return n, nil
}

// DeleteAll removes every character and resets the card number sequence.
//
// Postcondition: Returns the number of rows deleted.
func (r *CharacterRepository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM characters`)
	if err != nil {
		return 0, fmt.Errorf("deleting characters: %w", err)
	}
	if _, err := r.db.Exec(ctx, `ALTER SEQUENCE card_number_seq RESTART WITH 1`); err != nil {
		return 0, fmt.Errorf("resetting card numbers: %w", err)
	}
	return tag.RowsAffected(), nil
}

func dynamicArgs(d *character.Dynamic) (energy, maxEnergy *int, mood, loyalty *float64, bond *int, last *time.Time) {
	if d == nil {
		return nil, nil, nil, nil, nil, nil
	}
	return &d.Energy, &d.MaxEnergy, &d.Mood, &d.Loyalty, &d.Bond, nullTime(d.LastRestore)
}

func energyCarry(d *character.Dynamic) float64 {
	if d == nil {
		return 0
	}
	return d.EnergyCarry
}

func scanCharacter(row pgx.Row) (*character.Character, error) {
	var (
		c                       character.Character
		rarity                  string
		energy, maxEnergy, bond *int
		mood, loyalty           *float64
		lastRestore             *time.Time
		carry                   float64
	)
	if err := row.Scan(
		&c.ID, &c.CardNumber, &c.OwnerID, &c.Name, &rarity, &c.Race, &c.Profession, &c.Nationality,
		&c.Level, &c.Experience,
		&c.Stats.Power, &c.Stats.Charm, &c.Stats.Luck, &c.Stats.Affection, &c.Stats.Intellect, &c.Stats.Speed,
		&energy, &maxEnergy, &mood, &loyalty, &bond, &lastRestore, &carry,
		&c.ImageURL, &c.Tags, &c.IsActive, &c.IsFavorite, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.Rarity, _ = character.ParseRarity(rarity)
	if energy != nil {
		d := &character.Dynamic{Energy: *energy, LastRestore: fromNullTime(lastRestore), EnergyCarry: carry}
		if maxEnergy != nil {
			d.MaxEnergy = *maxEnergy
		}
		if mood != nil {
			d.Mood = *mood
		}
		if loyalty != nil {
			d.Loyalty = *loyalty
		}
		if bond != nil {
			d.Bond = *bond
		}
		c.Dynamic = d
	}
	return &c, nil
}
