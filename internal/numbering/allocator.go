package numbering

import (
	"context"
	"fmt"
	"time"

	"gestion-service/internal/apperr"
	"gestion-service/internal/model"
)

// Store is the storage contract the allocator requires. ReserveOrdinal MUST
// be atomic at the storage level (row-locked increment-and-return): an
// in-process mutex would only be safe for a single-instance deployment.
type Store interface {
	// ConfigsFor returns every numbering config of (tenantID, documentType).
	ConfigsFor(ctx context.Context, tenantID uint, documentType string) ([]model.NumberingConfig, error)

	// ReserveOrdinal atomically advances the cursor of the given config and
	// returns the pre-increment value. Returns apperr.ErrExhausted once the
	// cursor has passed the end of the range.
	ReserveOrdinal(ctx context.Context, configID uint) (int64, error)

	// SwitchDefault clears the default flag on every other config of the
	// same (tenant, documentType) and sets it on configID, inside a single
	// transaction so readers never observe zero or two defaults.
	SwitchDefault(ctx context.Context, tenantID uint, documentType string, configID uint) error
}

// Allocation is the outcome of a successful reservation.
type Allocation struct {
	ConfigID uint
	Ordinal  int64
	Number   string
}

// Allocator hands out document numbers from per-tenant numbering configs.
// All cursor mutation goes through the store's atomic reserve; a request
// aborted after the increment loses its ordinal (an accepted gap) but two
// requests can never receive the same one.
type Allocator struct {
	store Store
	now   func() time.Time
}

func NewAllocator(store Store) *Allocator {
	return &Allocator{store: store, now: time.Now}
}

// ReserveNext reserves the next number for (tenantID, documentType).
// Exhausted and Expired are caller-facing conflicts requiring an operator to
// extend the range or register a new resolution; ConfigurationError marks a
// persisted state the invariants forbid.
func (a *Allocator) ReserveNext(ctx context.Context, tenantID uint, documentType string) (*Allocation, error) {
	cfg, err := a.resolve(ctx, tenantID, documentType)
	if err != nil {
		return nil, err
	}

	if cfg.IssuedAt != nil && cfg.ExpiresAt != nil {
		now := a.now()
		if now.Before(*cfg.IssuedAt) || !now.Before(*cfg.ExpiresAt) {
			return nil, apperr.Wrap(apperr.ErrExpired, "numbering %q validity window is closed", cfg.Code)
		}
	}

	if cfg.NextValue > cfg.RangeEnd {
		return nil, apperr.Wrap(apperr.ErrExhausted, "numbering %q has no ordinals left", cfg.Code)
	}

	ordinal, err := a.store.ReserveOrdinal(ctx, cfg.ID)
	if err != nil {
		return nil, err
	}

	return &Allocation{
		ConfigID: cfg.ID,
		Ordinal:  ordinal,
		Number:   FormatNumber(cfg, ordinal),
	}, nil
}

// SetDefault makes configID the single default of (tenantID, documentType).
func (a *Allocator) SetDefault(ctx context.Context, tenantID uint, documentType string, configID uint) error {
	return a.store.SwitchDefault(ctx, tenantID, documentType, configID)
}

// resolve picks the unique config for (tenantID, documentType): the only one
// when one exists, otherwise the single default. Zero configs, or several
// defaults among several configs, are structurally impossible states.
func (a *Allocator) resolve(ctx context.Context, tenantID uint, documentType string) (*model.NumberingConfig, error) {
	cfgs, err := a.store.ConfigsFor(ctx, tenantID, documentType)
	if err != nil {
		return nil, err
	}
	if len(cfgs) == 0 {
		return nil, apperr.Wrap(apperr.ErrConfiguration, "no numbering configured for tenant %d document type %q", tenantID, documentType)
	}
	if len(cfgs) == 1 {
		return &cfgs[0], nil
	}

	var def *model.NumberingConfig
	for i := range cfgs {
		if !cfgs[i].IsDefault {
			continue
		}
		if def != nil {
			return nil, apperr.Wrap(apperr.ErrConfiguration, "tenant %d document type %q has multiple default numberings", tenantID, documentType)
		}
		def = &cfgs[i]
	}
	if def == nil {
		return nil, apperr.Wrap(apperr.ErrConfiguration, "tenant %d document type %q has multiple numberings and no default", tenantID, documentType)
	}
	return def, nil
}

// FormatNumber renders an allocated ordinal as prefix + separator +
// zero-padded ordinal. Width zero means no padding.
func FormatNumber(cfg *model.NumberingConfig, ordinal int64) string {
	return fmt.Sprintf("%s%s%0*d", cfg.Prefix, cfg.Separator, cfg.Width, ordinal)
}

// ValidateConfig checks the range invariant an administrative create or
// update must satisfy: range_start <= next_value <= range_end+1.
func ValidateConfig(cfg *model.NumberingConfig) error {
	if cfg.RangeStart > cfg.RangeEnd {
		return fmt.Errorf("range start %d exceeds range end %d", cfg.RangeStart, cfg.RangeEnd)
	}
	if cfg.NextValue < cfg.RangeStart || cfg.NextValue > cfg.RangeEnd+1 {
		return fmt.Errorf("next value %d outside [%d, %d]", cfg.NextValue, cfg.RangeStart, cfg.RangeEnd+1)
	}
	if cfg.Width < 0 {
		return fmt.Errorf("negative numeral width %d", cfg.Width)
	}
	return nil
}
