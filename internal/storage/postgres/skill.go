package postgres

import (
	"context"
	"fmt"
)

// SkillRepository stores per-user skill levels.
type SkillRepository struct {
	db DBTX
}

// NewSkillRepository creates a SkillRepository backed by db.
func NewSkillRepository(db DBTX) *SkillRepository {
	return &SkillRepository{db: db}
}

// Levels returns the user's unlocked skill levels keyed by skill id.
//
// Postcondition: Returns a non-nil map (empty when the user has no skills).
func (r *SkillRepository) Levels(ctx context.Context, userID int64) (map[string]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT skill_id, level FROM user_skills WHERE user_id = $1 AND level > 0`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing skills: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			id    string
			level int
		)
		if err := rows.Scan(&id, &level); err != nil {
			return nil, fmt.Errorf("scanning skill row: %w", err)
		}
		out[id] = level
	}
	return out, rows.Err()
}

// SetLevel upserts the user's level for skillID.
//
// Precondition: level >= 0.
func (r *SkillRepository) SetLevel(ctx context.Context, userID int64, skillID string, level int) error {
	if _, err := r.db.Exec(ctx, `
		INSERT INTO user_skills (user_id, skill_id, level) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, skill_id) DO UPDATE SET level = EXCLUDED.level, updated_at = NOW()`,
		userID, skillID, level,
	); err != nil {
		return fmt.Errorf("setting skill level: %w", err)
	}
	return nil
}
