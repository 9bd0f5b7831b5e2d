package audit

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"gestion-service/internal/model"
	promx "gestion-service/prometheus"
)

// Event kinds. Denials, numbering failures and default switches are the
// events the business rules require; the rest mirror the administrative
// mutations around them.
const (
	EventLoginOK    = "LOGIN_OK"
	EventLoginFail  = "LOGIN_FAIL"
	EventAuthDenied = "AUTH_DENIED"

	EventRoleCreated       = "ROLE_CREATED"
	EventRoleUpdated       = "ROLE_UPDATED"
	EventRoleDeleted       = "ROLE_DELETED"
	EventPermissionGranted = "ROLE_PERMISSION_ADDED"
	EventPermissionRevoked = "ROLE_PERMISSION_REMOVED"

	EventNumberingExhausted     = "NUMBERING_EXHAUSTED"
	EventNumberingExpired       = "NUMBERING_EXPIRED"
	EventNumberingDefaultSwitch = "NUMBERING_DEFAULT_SWITCHED"
	EventNumberingConfigError   = "NUMBERING_CONFIG_ERROR"
)

// Recorder writes structured audit events: one AuditLog row, one zap entry
// and one counter increment per event.
type Recorder struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewRecorder(db *gorm.DB, log *zap.Logger) *Recorder {
	return &Recorder{db: db, log: log}
}

// Record persists the event. A failed insert is logged but does not fail
// the surrounding request: the audit trail is best-effort, the business
// write is not.
func (r *Recorder) Record(ctx context.Context, actorID, tenantID *uint, kind, detail string) {
	promx.RecordAuditEvent(kind)

	fields := []zap.Field{
		zap.String("event_kind", kind),
		zap.String("detail", detail),
	}
	if actorID != nil {
		fields = append(fields, zap.Uint("actor_id", *actorID))
	}
	if tenantID != nil {
		fields = append(fields, zap.Uint("tenant_id", *tenantID))
	}
	r.log.Info("audit event", fields...)

	entry := model.AuditLog{
		ActorID:   actorID,
		TenantID:  tenantID,
		EventKind: kind,
		Detail:    detail,
	}
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		r.log.Error("failed to persist audit event",
			zap.String("event_kind", kind),
			zap.Error(err))
	}
}
