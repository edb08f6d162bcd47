package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/centralino/centralino/internal/scoring"
)

// EnabledRules returns the enabled scoring rules.
func (s *Store) EnabledRules(ctx context.Context) ([]scoring.Rule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT type, value, weight
		FROM rules
		WHERE enabled`,
	)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var rules []scoring.Rule
	for rows.Next() {
		r := scoring.Rule{Enabled: true}
		if err := rows.Scan(&r.Type, &r.Value, &r.Weight); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// UpsertRule inserts a scoring rule. Rules are managed by operators, not by
// the screening path.
func (s *Store) UpsertRule(ctx context.Context, r scoring.Rule) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rules (id, type, value, weight, enabled)
		VALUES ($1, $2, $3, $4, $5)`,
		id, r.Type, r.Value, r.Weight, r.Enabled,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert rule: %w", err)
	}
	return id, nil
}
