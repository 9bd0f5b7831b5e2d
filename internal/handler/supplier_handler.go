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
	"gestion-service/internal/validation"
	"gestion-service/pkg/database"
	"gestion-service/pkg/logger"
	"gestion-service/prometheus"
)

// SupplierRequest defines the structure for supplier creation/update requests
type SupplierRequest struct {
	DocumentTypeID *uint  `json:"document_type_id"`
	DocumentNumber string `json:"document_number"`
	Name           string `json:"name"`
	ContactPerson  string `json:"contact_person"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	City           string `json:"city"`
	PaymentTerms   string `json:"payment_terms"`
	Notes          string `json:"notes"`
	IsActive       bool   `json:"is_active"`
}

// CreateSupplier creates a new supplier for the current tenant
func CreateSupplier(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	var req SupplierRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		prometheus.RecordError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if req.Name == "" || req.DocumentNumber == "" {
		prometheus.RecordError("incomplete_supplier_creation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and document_number are required"})
	}

	tenantID := callerTenant(c, queryTenant(c))
	if err := guard.Authorize(caller, authz.ActionWrite, tenantID); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionWrite))
		return respondError(c, log, err)
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	db := database.GetDB()
	if err := validation.AssertUnique(db, &model.Supplier{}, tenantID, "document_number", req.DocumentNumber, 0); err != nil {
		return respondError(c, log, err)
	}

	supplier := model.Supplier{
		TenantID:       tenantID,
		DocumentTypeID: req.DocumentTypeID,
		DocumentNumber: req.DocumentNumber,
		Name:           req.Name,
		ContactPerson:  req.ContactPerson,
		Email:          req.Email,
		Phone:          req.Phone,
		Address:        req.Address,
		City:           req.City,
		PaymentTerms:   req.PaymentTerms,
		Notes:          req.Notes,
		IsActive:       req.IsActive,
		CreatedBy:      caller.UserID,
		UpdatedBy:      caller.UserID,
	}
	if supplier.DocumentTypeID != nil {
		if dv, ok := calc.VerificationDigit(*supplier.DocumentTypeID, supplier.DocumentNumber); ok {
			supplier.VerificationDigit = dv
			prometheus.ChecksumCounter.Inc()
		}
	}

	if result := db.Create(&supplier); result.Error != nil {
		log.Error("Failed to create supplier", zap.Error(result.Error))
		prometheus.RecordError("supplier_creation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "supplier creation failed"})
	}

	log.Info("Supplier created",
		zap.Uint("id", supplier.ID),
		zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusCreated, supplier)
}

// ListSuppliers lists the suppliers of the caller's tenant
func ListSuppliers(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	tenantID := callerTenant(c, queryTenant(c))
	if err := guard.Authorize(caller, authz.ActionRead, tenantID); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionRead))
		return respondError(c, log, err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var suppliers []model.Supplier
	if result := database.GetDB().Where("tenant_id = ?", tenantID).Order("id").Find(&suppliers); result.Error != nil {
		log.Error("Failed to list suppliers", zap.Error(result.Error))
		prometheus.RecordError("supplier_retrieval_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve suppliers"})
	}

	return c.JSON(http.StatusOK, suppliers)
}

// UpdateSupplier updates a supplier within the caller's tenant scope
func UpdateSupplier(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		prometheus.RecordError("invalid_supplier_id")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid supplier ID"})
	}

	var req SupplierRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		prometheus.RecordError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	db := database.GetDB()
	var supplier model.Supplier
	if result := db.First(&supplier, id); result.Error != nil {
		prometheus.RecordError("supplier_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "supplier not found"})
	}

	if err := guard.Authorize(caller, authz.ActionWrite, supplier.TenantID); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionWrite))
		return respondError(c, log, err)
	}

	if req.DocumentNumber != "" && req.DocumentNumber != supplier.DocumentNumber {
		if err := validation.AssertUnique(db, &model.Supplier{}, supplier.TenantID, "document_number", req.DocumentNumber, supplier.ID); err != nil {
			return respondError(c, log, err)
		}
		supplier.DocumentNumber = req.DocumentNumber
	}
	supplier.DocumentTypeID = req.DocumentTypeID
	if req.Name != "" {
		supplier.Name = req.Name
	}
	supplier.ContactPerson = req.ContactPerson
	supplier.Email = req.Email
	supplier.Phone = req.Phone
	supplier.Address = req.Address
	supplier.City = req.City
	supplier.PaymentTerms = req.PaymentTerms
	supplier.Notes = req.Notes
	supplier.IsActive = req.IsActive
	supplier.UpdatedBy = caller.UserID

	supplier.VerificationDigit = ""
	if supplier.DocumentTypeID != nil {
		if dv, ok := calc.VerificationDigit(*supplier.DocumentTypeID, supplier.DocumentNumber); ok {
			supplier.VerificationDigit = dv
			prometheus.ChecksumCounter.Inc()
		}
	}

	if err := db.Save(&supplier).Error; err != nil {
		log.Error("Failed to update supplier", zap.Error(err))
		prometheus.RecordError("supplier_update_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "supplier update failed"})
	}

	log.Info("Supplier updated", zap.Uint("id", supplier.ID))
	return c.JSON(http.StatusOK, supplier)
}

// DeleteSupplier soft-deletes a supplier
func DeleteSupplier(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		prometheus.RecordError("invalid_supplier_id")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid supplier ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	var supplier model.Supplier
	if result := database.GetDB().First(&supplier, id); result.Error != nil {
		prometheus.RecordError("supplier_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "supplier not found"})
	}

	if err := guard.Authorize(caller, authz.ActionWrite, supplier.TenantID); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionWrite))
		return respondError(c, log, err)
	}

	if err := database.GetDB().Delete(&supplier).Error; err != nil {
		log.Error("Failed to delete supplier", zap.Error(err))
		prometheus.RecordError("supplier_deletion_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "supplier deletion failed"})
	}

	log.Info("Supplier deleted", zap.Uint("id", supplier.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Supplier deleted successfully"})
}
