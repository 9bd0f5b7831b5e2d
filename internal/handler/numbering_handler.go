package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"gestion-service/internal/audit"
	"gestion-service/internal/authz"
	"gestion-service/internal/middleware"
	"gestion-service/internal/model"
	"gestion-service/internal/numbering"
	"gestion-service/pkg/database"
	"gestion-service/pkg/logger"
	"gestion-service/prometheus"
)

type numberingRequest struct {
	TenantID *uint `json:"tenant_id,omitempty"`

	DocumentType string `json:"document_type"`
	Code         string `json:"code"`
	Title        string `json:"title"`

	ShowNumbering bool   `json:"show_numbering"`
	Prefix        string `json:"prefix"`
	Separator     string `json:"separator"`
	NumberTitle   string `json:"number_title"`
	Width         int    `json:"width"`
	IsDefault     bool   `json:"is_default"`

	ResolutionNumber string     `json:"resolution_number"`
	IssuedAt         *time.Time `json:"issued_at"`
	ExpiresAt        *time.Time `json:"expires_at"`

	RangeStart int64 `json:"range_start"`
	RangeEnd   int64 `json:"range_end"`

	MaxLineItems *int `json:"max_line_items"`
	Electronic   bool `json:"electronic"`
}

// ListNumberingConfigs lists the numbering configs of the caller's tenant,
// optionally filtered by document type.
func ListNumberingConfigs(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	tenantID := callerTenant(c, queryTenant(c))
	if err := guard.Authorize(caller, authz.ActionRead, tenantID); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionRead))
		return respondError(c, log, err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	q := database.GetDB().Where("tenant_id = ?", tenantID).Order("id")
	if dt := c.QueryParam("document_type"); dt != "" {
		q = q.Where("document_type = ?", dt)
	}
	var cfgs []model.NumberingConfig
	if result := q.Find(&cfgs); result.Error != nil {
		log.Error("Failed to list numbering configs", zap.Error(result.Error))
		prometheus.RecordError("numbering_retrieval_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve numbering configs"})
	}

	return c.JSON(http.StatusOK, cfgs)
}

// CreateNumberingConfig registers a numbering resolution. The range invariant
// is validated up front and the cursor starts at range_start. When the new
// config is flagged default it atomically takes the flag over from any other
// config of the same document type.
func CreateNumberingConfig(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	var req numberingRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse numbering creation request", zap.Error(err))
		prometheus.RecordError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.DocumentType == "" || req.Code == "" || req.Title == "" {
		prometheus.RecordError("incomplete_numbering_creation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "document_type, code and title are required"})
	}

	tenantID := callerTenant(c, req.TenantID)
	if err := guard.Authorize(caller, authz.ActionManageNumbering, tenantID); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionManageNumbering))
		return respondError(c, log, err)
	}

	cfg := model.NumberingConfig{
		TenantID:         tenantID,
		DocumentType:     req.DocumentType,
		Code:             req.Code,
		Title:            req.Title,
		ShowNumbering:    req.ShowNumbering,
		Prefix:           req.Prefix,
		Separator:        req.Separator,
		NumberTitle:      req.NumberTitle,
		Width:            req.Width,
		ResolutionNumber: req.ResolutionNumber,
		IssuedAt:         req.IssuedAt,
		ExpiresAt:        req.ExpiresAt,
		RangeStart:       req.RangeStart,
		RangeEnd:         req.RangeEnd,
		NextValue:        req.RangeStart,
		MaxLineItems:     req.MaxLineItems,
		Electronic:       req.Electronic,
	}
	if err := numbering.ValidateConfig(&cfg); err != nil {
		prometheus.RecordNumberingOutcome("config_error")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	var count int64
	if err := database.GetDB().Model(&model.NumberingConfig{}).
		Where("tenant_id = ? AND code = ?", tenantID, req.Code).
		Count(&count).Error; err != nil {
		log.Error("Failed to check numbering code", zap.Error(err))
		prometheus.RecordError("numbering_creation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "numbering creation failed"})
	}
	if count > 0 {
		prometheus.RecordError("duplicate_numbering_code")
		return c.JSON(http.StatusConflict, echo.Map{"error": "numbering code already exists for this tenant"})
	}

	if result := database.GetDB().Create(&cfg); result.Error != nil {
		log.Error("Failed to create numbering config", zap.Error(result.Error))
		prometheus.RecordError("numbering_creation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "numbering creation failed"})
	}

	if req.IsDefault {
		if err := allocator.SetDefault(c.Request().Context(), tenantID, cfg.DocumentType, cfg.ID); err != nil {
			return respondError(c, log, err)
		}
		cfg.IsDefault = true
		prometheus.RecordNumberingOutcome("default_switch")
	}

	log.Info("Numbering config created",
		zap.Uint("id", cfg.ID),
		zap.Uint("tenant_id", tenantID),
		zap.String("code", cfg.Code))
	return c.JSON(http.StatusCreated, cfg)
}

// UpdateNumberingConfig updates the formatting and window fields of a config
// and may extend its range. The cursor itself is never client-writable.
func UpdateNumberingConfig(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		prometheus.RecordError("invalid_numbering_id")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid numbering config ID"})
	}

	var req numberingRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse numbering update request", zap.Error(err))
		prometheus.RecordError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	var cfg model.NumberingConfig
	if result := database.GetDB().First(&cfg, id); result.Error != nil {
		prometheus.RecordError("numbering_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "numbering config not found"})
	}

	if err := guard.Authorize(caller, authz.ActionManageNumbering, cfg.TenantID); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionManageNumbering))
		return respondError(c, log, err)
	}

	if req.Title != "" {
		cfg.Title = req.Title
	}
	cfg.ShowNumbering = req.ShowNumbering
	cfg.Prefix = req.Prefix
	cfg.Separator = req.Separator
	if req.NumberTitle != "" {
		cfg.NumberTitle = req.NumberTitle
	}
	cfg.Width = req.Width
	cfg.ResolutionNumber = req.ResolutionNumber
	cfg.IssuedAt = req.IssuedAt
	cfg.ExpiresAt = req.ExpiresAt
	if req.RangeStart != 0 || req.RangeEnd != 0 {
		cfg.RangeStart = req.RangeStart
		cfg.RangeEnd = req.RangeEnd
	}
	cfg.MaxLineItems = req.MaxLineItems
	cfg.Electronic = req.Electronic

	if err := numbering.ValidateConfig(&cfg); err != nil {
		prometheus.RecordNumberingOutcome("config_error")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	// Persist through the column-limited update: the cursor and the default
	// flag are never written back from a config read at request start.
	if err := st.UpdateConfigSettings(c.Request().Context(), &cfg); err != nil {
		log.Error("Failed to update numbering config", zap.Error(err))
		prometheus.RecordError("numbering_update_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "numbering update failed"})
	}

	log.Info("Numbering config updated", zap.Uint("id", cfg.ID))
	return c.JSON(http.StatusOK, cfg)
}

// SetDefaultNumbering makes one config the single default of its document
// type. The switch happens inside one transaction so no reader ever sees two
// defaults.
func SetDefaultNumbering(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		prometheus.RecordError("invalid_numbering_id")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid numbering config ID"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	var cfg model.NumberingConfig
	if result := database.GetDB().First(&cfg, id); result.Error != nil {
		prometheus.RecordError("numbering_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "numbering config not found"})
	}

	if err := guard.Authorize(caller, authz.ActionManageNumbering, cfg.TenantID); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionManageNumbering))
		return respondError(c, log, err)
	}

	if err := allocator.SetDefault(c.Request().Context(), cfg.TenantID, cfg.DocumentType, cfg.ID); err != nil {
		return respondError(c, log, err)
	}

	prometheus.RecordNumberingOutcome("default_switch")
	auditor.Record(c.Request().Context(), actorID(c), &cfg.TenantID, audit.EventNumberingDefaultSwitch,
		fmt.Sprintf("config %d now default for %q", cfg.ID, cfg.DocumentType))
	log.Info("Default numbering switched",
		zap.Uint("id", cfg.ID),
		zap.String("document_type", cfg.DocumentType))
	return c.JSON(http.StatusOK, echo.Map{"message": "Default numbering set successfully"})
}

// DeleteNumberingConfig removes a config no invoice references.
func DeleteNumberingConfig(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		prometheus.RecordError("invalid_numbering_id")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid numbering config ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	var cfg model.NumberingConfig
	if result := database.GetDB().First(&cfg, id); result.Error != nil {
		prometheus.RecordError("numbering_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "numbering config not found"})
	}

	if err := guard.Authorize(caller, authz.ActionManageNumbering, cfg.TenantID); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionManageNumbering))
		return respondError(c, log, err)
	}

	var count int64
	if err := database.GetDB().Model(&model.Invoice{}).
		Where("numbering_config_id = ?", id).Count(&count).Error; err != nil {
		log.Error("Failed to check numbering references", zap.Error(err))
		prometheus.RecordError("numbering_deletion_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "numbering deletion failed"})
	}
	if count > 0 {
		prometheus.RecordError("numbering_in_use")
		return c.JSON(http.StatusConflict, echo.Map{"error": "numbering config has issued documents"})
	}

	if err := database.GetDB().Delete(&model.NumberingConfig{}, id).Error; err != nil {
		log.Error("Failed to delete numbering config", zap.Error(err))
		prometheus.RecordError("numbering_deletion_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "numbering deletion failed"})
	}

	log.Info("Numbering config deleted", zap.Uint64("id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Numbering config deleted successfully"})
}

// queryTenant reads an optional ?tenant_id= override used by global operators.
func queryTenant(c echo.Context) *uint {
	if raw := c.QueryParam("tenant_id"); raw != "" {
		if v, err := strconv.ParseUint(raw, 10, 32); err == nil {
			id := uint(v)
			return &id
		}
	}
	return nil
}
