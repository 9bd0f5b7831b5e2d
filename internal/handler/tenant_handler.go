package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"gestion-service/internal/authz"
	"gestion-service/internal/middleware"
	"gestion-service/internal/model"
	"gestion-service/pkg/database"
	"gestion-service/pkg/logger"
	"gestion-service/prometheus"
)

// tenantRequest carries the client-settable fields of a tenant profile. The
// verification digit is deliberately absent: it is always derived server-side.
type tenantRequest struct {
	DocumentTypeID *uint  `json:"document_type_id"`
	DocumentNumber string `json:"document_number"`
	LegalName      string `json:"legal_name"`
	TradeName      string `json:"trade_name"`
	ShortName      string `json:"short_name"`
	Email          string `json:"email"`
	BillingEmail   string `json:"billing_email"`
	Phone          string `json:"phone"`
	Website        string `json:"website"`
}

// CreateTenant registers a new tenant. Only global operators may do this.
func CreateTenant(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	if caller.Category != model.CategorySuperAdmin {
		prometheus.RecordAuthzDenial(string(authz.ActionWrite))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only global operators may create tenants"})
	}

	var req tenantRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse tenant creation request", zap.Error(err))
		prometheus.RecordError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.LegalName == "" {
		prometheus.RecordError("incomplete_tenant_creation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "legal_name is required"})
	}

	tenant := model.Tenant{
		DocumentTypeID: req.DocumentTypeID,
		DocumentNumber: req.DocumentNumber,
		LegalName:      req.LegalName,
		TradeName:      req.TradeName,
		ShortName:      req.ShortName,
		Email:          req.Email,
		BillingEmail:   req.BillingEmail,
		Phone:          req.Phone,
		Website:        req.Website,
		Active:         true,
	}
	applyVerificationDigit(&tenant)

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&tenant); result.Error != nil {
		log.Error("Failed to create tenant", zap.Error(result.Error))
		prometheus.RecordError("tenant_creation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant creation failed"})
	}

	log.Info("Tenant created",
		zap.Uint("id", tenant.ID),
		zap.String("legal_name", tenant.LegalName))

	return c.JSON(http.StatusCreated, tenant)
}

// GetTenant returns one tenant profile, subject to the tenant-scope rules.
func GetTenant(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		prometheus.RecordError("invalid_tenant_id")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant ID"})
	}

	if err := guard.Authorize(caller, authz.ActionRead, uint(id)); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionRead))
		return respondError(c, log, err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var tenant model.Tenant
	if result := database.GetDB().First(&tenant, id); result.Error != nil {
		prometheus.RecordError("tenant_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
	}

	return c.JSON(http.StatusOK, tenant)
}

// UpdateTenant updates the tenant profile. Whenever the fiscal identity
// changes, the verification digit is recomputed from it; a digit supplied in
// the request body is ignored.
func UpdateTenant(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		prometheus.RecordError("invalid_tenant_id")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant ID"})
	}

	if err := guard.Authorize(caller, authz.ActionWrite, uint(id)); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionWrite))
		return respondError(c, log, err)
	}

	var req tenantRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse tenant update request", zap.Error(err))
		prometheus.RecordError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	var tenant model.Tenant
	if result := database.GetDB().First(&tenant, id); result.Error != nil {
		prometheus.RecordError("tenant_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
	}

	tenant.DocumentTypeID = req.DocumentTypeID
	tenant.DocumentNumber = req.DocumentNumber
	if req.LegalName != "" {
		tenant.LegalName = req.LegalName
	}
	tenant.TradeName = req.TradeName
	tenant.ShortName = req.ShortName
	tenant.Email = req.Email
	tenant.BillingEmail = req.BillingEmail
	tenant.Phone = req.Phone
	tenant.Website = req.Website
	applyVerificationDigit(&tenant)

	if err := database.GetDB().Save(&tenant).Error; err != nil {
		log.Error("Failed to update tenant", zap.Error(err))
		prometheus.RecordError("tenant_update_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant update failed"})
	}

	log.Info("Tenant updated", zap.Uint("id", tenant.ID))
	return c.JSON(http.StatusOK, tenant)
}

// ListTenants lists every tenant. Global operators only.
func ListTenants(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	if caller.Category != model.CategorySuperAdmin {
		prometheus.RecordAuthzDenial(string(authz.ActionRead))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only global operators may list tenants"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var tenants []model.Tenant
	if result := database.GetDB().Order("id").Find(&tenants); result.Error != nil {
		log.Error("Failed to list tenants", zap.Error(result.Error))
		prometheus.RecordError("tenant_retrieval_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve tenants"})
	}

	return c.JSON(http.StatusOK, tenants)
}

// applyVerificationDigit derives the stored digit from the tenant's fiscal
// identity, clearing it when no digit applies.
func applyVerificationDigit(t *model.Tenant) {
	t.VerificationDigit = ""
	if t.DocumentTypeID == nil {
		return
	}
	if dv, ok := calc.VerificationDigit(*t.DocumentTypeID, t.DocumentNumber); ok {
		t.VerificationDigit = dv
		prometheus.ChecksumCounter.Inc()
	}
}
