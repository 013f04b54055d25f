package resolve

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"github.com/JonMunkholm/allocimport/internal/domain"
)

type indicationEntry struct {
	rawID        int64
	normalizedID *int64
}

// IndicationResolver attaches a raw indication for the row's (code, text)
// pair, creating it on first sight. At most one raw indication exists per
// distinct pair.
type IndicationResolver struct {
	store IndicationStore
	cache map[string]indicationEntry
}

// NewIndicationResolver creates a resolver backed by store.
func NewIndicationResolver(store IndicationStore) *IndicationResolver {
	return &IndicationResolver{store: store}
}

func (r *IndicationResolver) Name() string { return NameIndication }

// Warm loads every known raw indication keyed by hash.
func (r *IndicationResolver) Warm(ctx context.Context) error {
	if r.store == nil {
		return errors.New("no indication store configured")
	}
	inds, err := r.store.ListIndications(ctx)
	if err != nil {
		return fmt.Errorf("list indications: %w", err)
	}
	r.cache = make(map[string]indicationEntry, len(inds))
	for _, ind := range inds {
		r.cache[ind.Hash] = indicationEntry{rawID: ind.ID, normalizedID: ind.NormalizedID}
	}
	return nil
}

// Supports reports whether the row carries a code or a text.
func (r *IndicationResolver) Supports(_ *domain.Allocation, rec *domain.RowRecord) bool {
	return rec.IndicationCode != nil || rec.IndicationText != nil
}

func (r *IndicationResolver) Apply(ctx context.Context, a *domain.Allocation, rec *domain.RowRecord) error {
	if r.cache == nil {
		return fmt.Errorf("%w: indication resolver used before Warm", ErrContractViolation)
	}

	var text string
	if rec.IndicationText != nil {
		text = *rec.IndicationText
	}
	hash := IndicationHash(rec.IndicationCode, text)

	entry, ok := r.cache[hash]
	if !ok {
		ind := &domain.Indication{Code: rec.IndicationCode, Text: text, Hash: hash}
		if err := r.store.CreateIndication(ctx, ind); err != nil {
			return fmt.Errorf("create indication: %w", err)
		}
		entry = indicationEntry{rawID: ind.ID, normalizedID: ind.NormalizedID}
		r.cache[hash] = entry
	}

	rawID := entry.rawID
	a.IndicationCode = rec.IndicationCode
	a.IndicationRawID = &rawID
	if entry.normalizedID != nil && a.IndicationNormalizedID == nil {
		id := *entry.normalizedID
		a.IndicationNormalizedID = &id
	}
	return nil
}

// IndicationHash is the hex SHA-256 of "<code>|<text>"; code is empty when absent.
func IndicationHash(code *int, text string) string {
	var c string
	if code != nil {
		c = strconv.Itoa(*code)
	}
	sum := sha256.Sum256([]byte(c + "|" + text))
	return hex.EncodeToString(sum[:])
}
