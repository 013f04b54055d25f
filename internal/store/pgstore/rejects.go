package pgstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/allocimport/internal/domain"
)

// InsertReject stores one reject; messages and row are JSON columns.
func (s *Store) InsertReject(ctx context.Context, importID uuid.UUID, rec domain.RejectRecord) error {
	messages, err := json.Marshal(rec.Messages)
	if err != nil {
		return fmt.Errorf("encode reject messages: %w", err)
	}
	row, err := json.Marshal(rec.Row)
	if err != nil {
		return fmt.Errorf("encode reject row: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO allocation_import_rejects (import_id, line_number, messages, row_data, created_at)
		 VALUES ($1, $2, $3, $4, now())`,
		pgUUID(importID), pgInt4(rec.Line), messages, row,
	)
	if err != nil {
		return fmt.Errorf("insert reject: %w", err)
	}
	return nil
}

func (s *Store) ListRejects(ctx context.Context, importID uuid.UUID, limit, offset int) ([]domain.RejectRecord, error) {
	if limit <= 0 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.pool.Query(ctx,
		`SELECT line_number, messages, row_data
		 FROM allocation_import_rejects
		 WHERE import_id = $1
		 ORDER BY id
		 LIMIT $2 OFFSET $3`,
		pgUUID(importID), limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list rejects: %w", err)
	}
	defer rows.Close()

	var out []domain.RejectRecord
	for rows.Next() {
		var (
			line          pgtype.Int4
			messages, raw []byte
			rec           domain.RejectRecord
		)
		if err := rows.Scan(&line, &messages, &raw); err != nil {
			return nil, fmt.Errorf("scan reject: %w", err)
		}
		if err := json.Unmarshal(messages, &rec.Messages); err != nil {
			return nil, fmt.Errorf("decode reject messages: %w", err)
		}
		if err := json.Unmarshal(raw, &rec.Row); err != nil {
			return nil, fmt.Errorf("decode reject row: %w", err)
		}
		rec.Line = int4Ptr(line)
		out = append(out, rec)
	}
	return out, rows.Err()
}
