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

// EmployeeRequest defines the structure for employee creation/update requests
type EmployeeRequest struct {
	DocumentTypeID *uint  `json:"document_type_id"`
	DocumentNumber string `json:"document_number"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Position       string `json:"position"`
	IsSeller       bool   `json:"is_seller"`
	IsActive       bool   `json:"is_active"`
}

// CreateEmployee creates a new employee record for the current tenant.
// Employee management is an administrative action, not a staff one.
func CreateEmployee(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	var req EmployeeRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		prometheus.RecordError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if req.FirstName == "" || req.DocumentNumber == "" {
		prometheus.RecordError("incomplete_employee_creation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "first_name and document_number are required"})
	}

	tenantID := callerTenant(c, queryTenant(c))
	if err := guard.Authorize(caller, authz.ActionManageUsers, tenantID); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionManageUsers))
		return respondError(c, log, err)
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	db := database.GetDB()
	if err := validation.AssertUnique(db, &model.Employee{}, tenantID, "document_number", req.DocumentNumber, 0); err != nil {
		return respondError(c, log, err)
	}

	employee := model.Employee{
		TenantID:       tenantID,
		DocumentTypeID: req.DocumentTypeID,
		DocumentNumber: req.DocumentNumber,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Phone:          req.Phone,
		Position:       req.Position,
		IsSeller:       req.IsSeller,
		IsActive:       req.IsActive,
		CreatedBy:      caller.UserID,
		UpdatedBy:      caller.UserID,
	}
	if employee.DocumentTypeID != nil {
		if dv, ok := calc.VerificationDigit(*employee.DocumentTypeID, employee.DocumentNumber); ok {
			employee.VerificationDigit = dv
			prometheus.ChecksumCounter.Inc()
		}
	}

	if result := db.Create(&employee); result.Error != nil {
		log.Error("Failed to create employee", zap.Error(result.Error))
		prometheus.RecordError("employee_creation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "employee creation failed"})
	}

	log.Info("Employee created",
		zap.Uint("id", employee.ID),
		zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusCreated, employee)
}

// ListEmployees lists the employees of the caller's tenant
func ListEmployees(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	tenantID := callerTenant(c, queryTenant(c))
	if err := guard.Authorize(caller, authz.ActionRead, tenantID); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionRead))
		return respondError(c, log, err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var employees []model.Employee
	if result := database.GetDB().Where("tenant_id = ?", tenantID).Order("id").Find(&employees); result.Error != nil {
		log.Error("Failed to list employees", zap.Error(result.Error))
		prometheus.RecordError("employee_retrieval_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve employees"})
	}

	return c.JSON(http.StatusOK, employees)
}

// UpdateEmployee updates an employee record within the caller's tenant scope
func UpdateEmployee(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		prometheus.RecordError("invalid_employee_id")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid employee ID"})
	}

	var req EmployeeRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		prometheus.RecordError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	db := database.GetDB()
	var employee model.Employee
	if result := db.First(&employee, id); result.Error != nil {
		prometheus.RecordError("employee_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "employee not found"})
	}

	if err := guard.Authorize(caller, authz.ActionManageUsers, employee.TenantID); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionManageUsers))
		return respondError(c, log, err)
	}

	if req.DocumentNumber != "" && req.DocumentNumber != employee.DocumentNumber {
		if err := validation.AssertUnique(db, &model.Employee{}, employee.TenantID, "document_number", req.DocumentNumber, employee.ID); err != nil {
			return respondError(c, log, err)
		}
		employee.DocumentNumber = req.DocumentNumber
	}
	employee.DocumentTypeID = req.DocumentTypeID
	if req.FirstName != "" {
		employee.FirstName = req.FirstName
	}
	employee.LastName = req.LastName
	employee.Email = req.Email
	employee.Phone = req.Phone
	employee.Position = req.Position
	employee.IsSeller = req.IsSeller
	employee.IsActive = req.IsActive
	employee.UpdatedBy = caller.UserID

	employee.VerificationDigit = ""
	if employee.DocumentTypeID != nil {
		if dv, ok := calc.VerificationDigit(*employee.DocumentTypeID, employee.DocumentNumber); ok {
			employee.VerificationDigit = dv
			prometheus.ChecksumCounter.Inc()
		}
	}

	if err := db.Save(&employee).Error; err != nil {
		log.Error("Failed to update employee", zap.Error(err))
		prometheus.RecordError("employee_update_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "employee update failed"})
	}

	log.Info("Employee updated", zap.Uint("id", employee.ID))
	return c.JSON(http.StatusOK, employee)
}

// DeleteEmployee soft-deletes an employee record
func DeleteEmployee(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		prometheus.RecordError("invalid_employee_id")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid employee ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	var employee model.Employee
	if result := database.GetDB().First(&employee, id); result.Error != nil {
		prometheus.RecordError("employee_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "employee not found"})
	}

	if err := guard.Authorize(caller, authz.ActionManageUsers, employee.TenantID); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionManageUsers))
		return respondError(c, log, err)
	}

	if err := database.GetDB().Delete(&employee).Error; err != nil {
		log.Error("Failed to delete employee", zap.Error(err))
		prometheus.RecordError("employee_deletion_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "employee deletion failed"})
	}

	log.Info("Employee deleted", zap.Uint("id", employee.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Employee deleted successfully"})
}
