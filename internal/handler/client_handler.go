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

// ClientRequest defines the structure for client creation/update requests.
// The verification digit is never part of the request: it is derived from the
// document type and number.
type ClientRequest struct {
	DocumentTypeID *uint   `json:"document_type_id"`
	DocumentNumber string  `json:"document_number"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Phone          string  `json:"phone"`
	Address        string  `json:"address"`
	City           string  `json:"city"`
	AllowSales     bool    `json:"allow_sales"`
	Discount       float64 `json:"discount"`
	CreditLimit    float64 `json:"credit_limit"`
	Notes          string  `json:"notes"`
}

// CreateClient creates a new client for the current tenant
func CreateClient(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	var req ClientRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		prometheus.RecordError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if req.Name == "" || req.DocumentNumber == "" {
		prometheus.RecordError("incomplete_client_creation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and document_number are required"})
	}

	tenantID := callerTenant(c, queryTenant(c))
	if err := guard.Authorize(caller, authz.ActionWrite, tenantID); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionWrite))
		return respondError(c, log, err)
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	db := database.GetDB()
	if err := validation.AssertUnique(db, &model.Client{}, tenantID, "document_number", req.DocumentNumber, 0); err != nil {
		return respondError(c, log, err)
	}

	client := model.Client{
		TenantID:       tenantID,
		DocumentTypeID: req.DocumentTypeID,
		DocumentNumber: req.DocumentNumber,
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Address:        req.Address,
		City:           req.City,
		AllowSales:     req.AllowSales,
		Discount:       req.Discount,
		CreditLimit:    req.CreditLimit,
		Notes:          req.Notes,
		CreatedBy:      caller.UserID,
		UpdatedBy:      caller.UserID,
	}
	if client.DocumentTypeID != nil {
		if dv, ok := calc.VerificationDigit(*client.DocumentTypeID, client.DocumentNumber); ok {
			client.VerificationDigit = dv
			prometheus.ChecksumCounter.Inc()
		}
	}

	if result := db.Create(&client); result.Error != nil {
		log.Error("Failed to create client", zap.Error(result.Error))
		prometheus.RecordError("client_creation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "client creation failed"})
	}

	log.Info("Client created",
		zap.Uint("id", client.ID),
		zap.Uint("tenant_id", tenantID),
		zap.String("document_number", client.DocumentNumber))
	return c.JSON(http.StatusCreated, client)
}

// ListClients lists the clients of the caller's tenant
func ListClients(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	tenantID := callerTenant(c, queryTenant(c))
	if err := guard.Authorize(caller, authz.ActionRead, tenantID); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionRead))
		return respondError(c, log, err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var clients []model.Client
	if result := database.GetDB().Where("tenant_id = ?", tenantID).Order("id").Find(&clients); result.Error != nil {
		log.Error("Failed to list clients", zap.Error(result.Error))
		prometheus.RecordError("client_retrieval_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve clients"})
	}

	return c.JSON(http.StatusOK, clients)
}

// GetClient returns one client within the caller's tenant scope
func GetClient(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		prometheus.RecordError("invalid_client_id")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid client ID"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var client model.Client
	if result := database.GetDB().First(&client, id); result.Error != nil {
		prometheus.RecordError("client_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "client not found"})
	}

	if err := guard.Authorize(caller, authz.ActionRead, client.TenantID); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionRead))
		return respondError(c, log, err)
	}

	return c.JSON(http.StatusOK, client)
}

// UpdateClient updates a client. Changing the fiscal identity recomputes the
// verification digit and re-checks tenant-scoped uniqueness excluding the
// record itself.
func UpdateClient(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		prometheus.RecordError("invalid_client_id")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid client ID"})
	}

	var req ClientRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		prometheus.RecordError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	db := database.GetDB()
	var client model.Client
	if result := db.First(&client, id); result.Error != nil {
		prometheus.RecordError("client_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "client not found"})
	}

	if err := guard.Authorize(caller, authz.ActionWrite, client.TenantID); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionWrite))
		return respondError(c, log, err)
	}

	if req.DocumentNumber != "" && req.DocumentNumber != client.DocumentNumber {
		if err := validation.AssertUnique(db, &model.Client{}, client.TenantID, "document_number", req.DocumentNumber, client.ID); err != nil {
			return respondError(c, log, err)
		}
		client.DocumentNumber = req.DocumentNumber
	}
	client.DocumentTypeID = req.DocumentTypeID
	if req.Name != "" {
		client.Name = req.Name
	}
	client.Email = req.Email
	client.Phone = req.Phone
	client.Address = req.Address
	client.City = req.City
	client.AllowSales = req.AllowSales
	client.Discount = req.Discount
	client.CreditLimit = req.CreditLimit
	client.Notes = req.Notes
	client.UpdatedBy = caller.UserID

	client.VerificationDigit = ""
	if client.DocumentTypeID != nil {
		if dv, ok := calc.VerificationDigit(*client.DocumentTypeID, client.DocumentNumber); ok {
			client.VerificationDigit = dv
			prometheus.ChecksumCounter.Inc()
		}
	}

	if err := db.Save(&client).Error; err != nil {
		log.Error("Failed to update client", zap.Error(err))
		prometheus.RecordError("client_update_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "client update failed"})
	}

	log.Info("Client updated", zap.Uint("id", client.ID))
	return c.JSON(http.StatusOK, client)
}

// DeleteClient soft-deletes a client
func DeleteClient(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		prometheus.RecordError("invalid_client_id")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid client ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	var client model.Client
	if result := database.GetDB().First(&client, id); result.Error != nil {
		prometheus.RecordError("client_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "client not found"})
	}

	if err := guard.Authorize(caller, authz.ActionWrite, client.TenantID); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionWrite))
		return respondError(c, log, err)
	}

	if err := database.GetDB().Delete(&client).Error; err != nil {
		log.Error("Failed to delete client", zap.Error(err))
		prometheus.RecordError("client_deletion_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "client deletion failed"})
	}

	log.Info("Client deleted", zap.Uint("id", client.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Client deleted successfully"})
}
