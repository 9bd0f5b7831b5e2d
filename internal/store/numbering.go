package store

import (
	"context"

	"gorm.io/gorm"

	"gestion-service/internal/apperr"
	"gestion-service/internal/model"
)

func (s *Store) ConfigsFor(ctx context.Context, tenantID uint, documentType string) ([]model.NumberingConfig, error) {
	var cfgs []model.NumberingConfig
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND document_type = ?", tenantID, documentType).
		Order("id").
		Find(&cfgs).Error
	if err != nil {
		return nil, err
	}
	return cfgs, nil
}

// ReserveOrdinal advances the cursor with a single row-locked statement and
// returns the pre-increment value. The guarded WHERE clause means two
// concurrent calls can never read the same cursor: the row lock serializes
// them and the second sees the incremented value. Zero rows back means the
// range is spent.
func (s *Store) ReserveOrdinal(ctx context.Context, configID uint) (int64, error) {
	var ordinal int64
	res := s.db.WithContext(ctx).Raw(
		`UPDATE numbering_configs
		    SET next_value = next_value + 1, updated_at = NOW()
		  WHERE id = ? AND next_value <= range_end
		RETURNING next_value - 1`,
		configID,
	).Scan(&ordinal)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, apperr.Wrap(apperr.ErrExhausted, "numbering config %d has no ordinals left", configID)
	}
	return ordinal, nil
}

// UpdateConfigSettings persists the admin-editable fields of a numbering
// config. next_value and is_default are deliberately absent from the column
// list: the cursor moves only through ReserveOrdinal and the default flag
// only through SwitchDefault, so a stale read can never rewind either.
func (s *Store) UpdateConfigSettings(ctx context.Context, cfg *model.NumberingConfig) error {
	return s.db.WithContext(ctx).Model(cfg).
		Select("document_type", "code", "title", "show_numbering", "prefix",
			"separator", "number_title", "width", "resolution_number",
			"issued_at", "expires_at", "range_start", "range_end",
			"max_line_items", "electronic").
		Updates(*cfg).Error
}

// SwitchDefault clears and sets the default flag in one transaction, so a
// concurrent reader sees either the old default or the new one, never both
// or neither.
func (s *Store) SwitchDefault(ctx context.Context, tenantID uint, documentType string, configID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.NumberingConfig{}).
			Where("id = ? AND tenant_id = ? AND document_type = ?", configID, tenantID, documentType).
			Update("is_default", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Wrap(apperr.ErrNotFound, "numbering config %d for tenant %d %q", configID, tenantID, documentType)
		}
		return tx.Model(&model.NumberingConfig{}).
			Where("tenant_id = ? AND document_type = ? AND id <> ?", tenantID, documentType, configID).
			Update("is_default", false).Error
	})
}
