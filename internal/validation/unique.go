package validation

import (
	"fmt"

	"gorm.io/gorm"

	"gestion-service/internal/apperr"
)

// AssertUnique fails with Conflict when another record of the same kind
// already holds (tenantID, value) in the given column. Run it on the same
// transaction as the subsequent insert or update: it is a fast-fail
// pre-check, while the composite unique index on the model is the
// correctness backstop under concurrent submissions.
//
// excludeID lets an update check uniqueness against every row but itself;
// pass zero on create.
func AssertUnique(db *gorm.DB, mdl interface{}, tenantID uint, column, value string, excludeID uint) error {
	query := db.Model(mdl).Where(fmt.Sprintf("tenant_id = ? AND %s = ?", column), tenantID, value)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperr.Wrap(apperr.ErrConflict, "%s %q already registered in tenant %d", column, value, tenantID)
	}
	return nil
}
