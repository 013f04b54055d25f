package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/allocimport/internal/domain"
)

func (s *Store) ListDispatchAreas(ctx context.Context) ([]domain.DispatchArea, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, state_id FROM dispatch_areas`)
	if err != nil {
		return nil, fmt.Errorf("list dispatch areas: %w", err)
	}
	defer rows.Close()

	var out []domain.DispatchArea
	for rows.Next() {
		var a domain.DispatchArea
		if err := rows.Scan(&a.ID, &a.Name, &a.StateID); err != nil {
			return nil, fmt.Errorf("scan dispatch area: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) ListStates(ctx context.Context) ([]domain.State, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM states`)
	if err != nil {
		return nil, fmt.Errorf("list states: %w", err)
	}
	defer rows.Close()

	var out []domain.State
	for rows.Next() {
		var st domain.State
		if err := rows.Scan(&st.ID, &st.Name); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) ListIndications(ctx context.Context) ([]domain.Indication, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, code, text, hash, normalized_id FROM indications_raw`)
	if err != nil {
		return nil, fmt.Errorf("list indications: %w", err)
	}
	defer rows.Close()

	var out []domain.Indication
	for rows.Next() {
		var (
			ind        domain.Indication
			code       pgtype.Int4
			normalized pgtype.Int8
		)
		if err := rows.Scan(&ind.ID, &code, &ind.Text, &ind.Hash, &normalized); err != nil {
			return nil, fmt.Errorf("scan indication: %w", err)
		}
		ind.Code = int4Ptr(code)
		ind.NormalizedID = int8Ptr(normalized)
		out = append(out, ind)
	}
	return out, rows.Err()
}

// CreateIndication inserts a raw indication. An existing row with the same
// hash is returned instead, so concurrent runs cannot create duplicates.
func (s *Store) CreateIndication(ctx context.Context, ind *domain.Indication) error {
	var normalized pgtype.Int8
	err := s.pool.QueryRow(ctx,
		`INSERT INTO indications_raw (code, text, hash)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (hash) DO UPDATE SET hash = EXCLUDED.hash
		 RETURNING id, normalized_id`,
		pgInt4(ind.Code), ind.Text, ind.Hash,
	).Scan(&ind.ID, &normalized)
	if err != nil {
		return fmt.Errorf("insert indication: %w", err)
	}
	ind.NormalizedID = int8Ptr(normalized)
	return nil
}
