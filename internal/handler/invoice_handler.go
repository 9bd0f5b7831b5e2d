package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gestion-service/internal/apperr"
	"gestion-service/internal/audit"
	"gestion-service/internal/authz"
	"gestion-service/internal/middleware"
	"gestion-service/internal/model"
	"gestion-service/internal/numbering"
	"gestion-service/pkg/database"
	"gestion-service/pkg/logger"
	"gestion-service/prometheus"
)

// InvoiceRequest defines the structure for invoice creation requests. The
// number is never part of the request: it always comes from the allocator.
type InvoiceRequest struct {
	ClientID     uint    `json:"client_id"`
	DocumentType string  `json:"document_type"`
	Total        float64 `json:"total"`
	Notes        string  `json:"notes"`
}

// CreateInvoice issues a numbered invoice. The ordinal reservation is a
// single atomic cursor advance, so concurrent submissions each get a distinct
// number; an insert failure after the reservation leaves a gap, never a
// duplicate.
func CreateInvoice(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	var req InvoiceRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		prometheus.RecordError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if req.ClientID == 0 {
		prometheus.RecordError("incomplete_invoice_creation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "client_id is required"})
	}
	if req.DocumentType == "" {
		req.DocumentType = "Invoice"
	}

	tenantID := callerTenant(c, queryTenant(c))
	if err := guard.Authorize(caller, authz.ActionWrite, tenantID); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionWrite))
		return respondError(c, log, err)
	}

	// The client must belong to the same tenant the invoice is issued in.
	defer prometheus.TrackDBOperation("insert")(time.Now())
	var client model.Client
	if result := database.GetDB().
		Where("id = ? AND tenant_id = ?", req.ClientID, tenantID).
		First(&client); result.Error != nil {
		prometheus.RecordError("client_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "client not found"})
	}
	if !client.AllowSales {
		prometheus.RecordError("client_sales_blocked")
		return c.JSON(http.StatusConflict, echo.Map{"error": "sales are blocked for this client"})
	}

	// Reserve and insert share one transaction: an insert failure rolls the
	// cursor advance back with it, so a failed request never burns an ordinal
	// and a reserved number is never attached to a half-written document.
	var invoice model.Invoice
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		alloc, err := numbering.NewAllocator(st.WithTx(tx)).ReserveNext(c.Request().Context(), tenantID, req.DocumentType)
		if err != nil {
			return err
		}
		invoice = model.Invoice{
			TenantID:          tenantID,
			ClientID:          client.ID,
			NumberingConfigID: alloc.ConfigID,
			Number:            alloc.Number,
			Ordinal:           alloc.Ordinal,
			Total:             req.Total,
			Notes:             req.Notes,
			CreatedBy:         caller.UserID,
		}
		return tx.Create(&invoice).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrExhausted):
			prometheus.RecordNumberingOutcome("exhausted")
			auditor.Record(c.Request().Context(), actorID(c), &tenantID, audit.EventNumberingExhausted, err.Error())
			return respondError(c, log, err)
		case errors.Is(err, apperr.ErrExpired):
			prometheus.RecordNumberingOutcome("expired")
			auditor.Record(c.Request().Context(), actorID(c), &tenantID, audit.EventNumberingExpired, err.Error())
			return respondError(c, log, err)
		case errors.Is(err, apperr.ErrConfiguration):
			prometheus.RecordNumberingOutcome("config_error")
			auditor.Record(c.Request().Context(), actorID(c), &tenantID, audit.EventNumberingConfigError, err.Error())
			return respondError(c, log, err)
		}
		log.Error("Failed to create invoice", zap.Error(err))
		prometheus.RecordError("invoice_creation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "invoice creation failed"})
	}

	prometheus.RecordNumberingOutcome("allocated")
	log.Info("Invoice created",
		zap.Uint("id", invoice.ID),
		zap.String("number", invoice.Number),
		zap.Int64("ordinal", invoice.Ordinal),
		zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusCreated, invoice)
}

// ListInvoices lists the invoices of the caller's tenant
func ListInvoices(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	tenantID := callerTenant(c, queryTenant(c))
	if err := guard.Authorize(caller, authz.ActionRead, tenantID); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionRead))
		return respondError(c, log, err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var invoices []model.Invoice
	if result := database.GetDB().Where("tenant_id = ?", tenantID).Order("id").Find(&invoices); result.Error != nil {
		log.Error("Failed to list invoices", zap.Error(result.Error))
		prometheus.RecordError("invoice_retrieval_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve invoices"})
	}

	return c.JSON(http.StatusOK, invoices)
}

// GetInvoice returns one invoice within the caller's tenant scope
func GetInvoice(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		prometheus.RecordError("invalid_invoice_id")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid invoice ID"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var invoice model.Invoice
	if result := database.GetDB().First(&invoice, id); result.Error != nil {
		prometheus.RecordError("invoice_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "invoice not found"})
	}

	if err := guard.Authorize(caller, authz.ActionRead, invoice.TenantID); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionRead))
		return respondError(c, log, err)
	}

	return c.JSON(http.StatusOK, invoice)
}

// ListAuditEvents lists the audit trail of the caller's tenant, newest first.
func ListAuditEvents(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	tenantID := callerTenant(c, queryTenant(c))
	if err := guard.Authorize(caller, authz.ActionManageUsers, tenantID); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionManageUsers))
		return respondError(c, log, err)
	}

	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	q := database.GetDB().Order("id DESC").Limit(limit)
	if caller.Category == model.CategorySuperAdmin && c.QueryParam("tenant_id") == "" {
		// Global operators without an explicit filter see everything.
	} else {
		q = q.Where("tenant_id = ?", tenantID)
	}
	if kind := c.QueryParam("kind"); kind != "" {
		q = q.Where("event_kind = ?", kind)
	}
	var events []model.AuditLog
	if result := q.Find(&events); result.Error != nil {
		log.Error("Failed to list audit events", zap.Error(result.Error))
		prometheus.RecordError("audit_retrieval_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve audit events"})
	}

	return c.JSON(http.StatusOK, events)
}

// NextNumberPreview is exposed for admin UIs that show the number an invoice
// would get without reserving it.
func NextNumberPreview(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	tenantID := callerTenant(c, queryTenant(c))
	if err := guard.Authorize(caller, authz.ActionRead, tenantID); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionRead))
		return respondError(c, log, err)
	}

	documentType := c.QueryParam("document_type")
	if documentType == "" {
		documentType = "Invoice"
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var cfgs []model.NumberingConfig
	if result := database.GetDB().
		Where("tenant_id = ? AND document_type = ?", tenantID, documentType).
		Order("id").Find(&cfgs); result.Error != nil {
		log.Error("Failed to load numbering configs", zap.Error(result.Error))
		prometheus.RecordError("numbering_retrieval_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve numbering configs"})
	}

	var cfg *model.NumberingConfig
	for i := range cfgs {
		if len(cfgs) == 1 || cfgs[i].IsDefault {
			cfg = &cfgs[i]
			break
		}
	}
	if cfg == nil {
		prometheus.RecordNumberingOutcome("config_error")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("no usable numbering for document type %q", documentType)})
	}

	preview := fmt.Sprintf("%s%s%0*d", cfg.Prefix, cfg.Separator, cfg.Width, cfg.NextValue)
	return c.JSON(http.StatusOK, echo.Map{
		"config_id": cfg.ID,
		"next":      preview,
		"remaining": cfg.RangeEnd - cfg.NextValue + 1,
	})
}
