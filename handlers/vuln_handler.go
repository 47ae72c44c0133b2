// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"errors"
	"net/http"
	"time"
	"vulnmgr-server/audit"
	"vulnmgr-server/db"
	"vulnmgr-server/middlewares"
	"vulnmgr-server/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// SearchVulnerabilitiesHandler godoc
// @Summary      Search vulnerabilities
// @Description  Searches and filters vulnerabilities with pagination.
// @Tags         vulnerabilities
// @Produce      json
// @Param        q        query  string  false  "Search query (name, description, risk)"
// @Param        level    query  string  false  "Filter by severity level"
// @Param        type     query  string  false  "Filter by type"
// @Param        page     query  int     false  "Page number (default 1)"
// @Param        per_page query  int     false  "Items per page (default 50, max 100)"
// @Success      200 {object} VulnerabilityListResponse "Search results"
// @Failure      401 {object} echo.HTTPError            "Unauthorized"
// @Failure      500 {object} echo.HTTPError            "Internal server error"
// @Router       /api/vulns [get]
func SearchVulnerabilitiesHandler(c echo.Context) error {
	logger := c.Logger()

	query := db.Conn.Model(&models.Vulnerability{})
	if q := c.QueryParam("q"); q != "" {
		pattern := "%" + q + "%"
		query = query.Where(
			"name LIKE ? OR description LIKE ? OR risk LIKE ? OR recommendation LIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}
	if level := c.QueryParam("level"); level != "" {
		query = query.Where("level = ?", level)
	}
	if vulnType := c.QueryParam("type"); vulnType != "" {
		query = query.Where("vuln_type = ?", vulnType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Errorf("Failed to count vulnerabilities: %v", err)
		return echo.ErrInternalServerError
	}

	page, perPage := 1, 50
	if p := c.QueryParam("page"); p != "" {
		if v, err := parsePositiveInt(p); err == nil {
			page = v
		}
	}
	if pp := c.QueryParam("per_page"); pp != "" {
		if v, err := parsePositiveInt(pp); err == nil {
			perPage = v
		}
	}
	if perPage > 100 {
		perPage = 100
	}

	var vulns []models.Vulnerability
	if err := query.Order("updated_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&vulns).Error; err != nil {
		logger.Errorf("Failed to fetch vulnerabilities: %v", err)
		return echo.ErrInternalServerError
	}

	items := make([]VulnerabilityInfo, 0, len(vulns))
	for i := range vulns {
		items = append(items, vulnerabilityInfo(&vulns[i]))
	}
	return c.JSON(http.StatusOK, VulnerabilityListResponse{
		Items:   items,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	})
}

// GetVulnerabilityHandler godoc
// @Summary      Get a vulnerability
// @Tags         vulnerabilities
// @Produce      json
// @Param        vuln_id  path  string  true  "Vulnerability ID"
// @Success      200 {object} VulnerabilityInfo "Vulnerability"
// @Failure      404 {object} echo.HTTPError    "Vulnerability not found"
// @Router       /api/vulns/{vuln_id} [get]
func GetVulnerabilityHandler(c echo.Context) error {
	vuln, httpErr := findVulnerabilityByParam(c)
	if httpErr != nil {
		return httpErr
	}
	return c.JSON(http.StatusOK, vulnerabilityInfo(vuln))
}

// CreateVulnerabilityHandler godoc
// @Summary      Create a vulnerability
// @Description  Creates a new vulnerability entry (editor or admin role).
// @Tags         vulnerabilities
// @Accept       json
// @Produce      json
// @Param        vulnerabilityRequest  body  VulnerabilityRequest  true  "Vulnerability payload"
// @Success      201 {object} VulnerabilityInfo "Vulnerability created"
// @Failure      400 {object} echo.HTTPError    "Bad request"
// @Failure      403 {object} echo.HTTPError    "Editor or admin privileges required"
// @Failure      500 {object} echo.HTTPError    "Internal server error"
// @Router       /api/vulns [post]
func CreateVulnerabilityHandler(c echo.Context) error {
	logger := c.Logger()

	var req VulnerabilityRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid vulnerability payload:", err)
		return echo.ErrBadRequest
	}
	if req.Name == "" {
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "name field is required",
		}
	}

	vuln := models.Vulnerability{
		Name:              req.Name,
		Level:             models.VulnerabilityLevel(req.Level),
		VulnType:          models.VulnerabilityType(req.Type),
		Scope:             req.Scope,
		ProtocolInterface: req.ProtocolInterface,
		CvssScore:         req.CvssScore,
		CvssVector:        req.CvssVector,
		Description:       req.Description,
		Risk:              req.Risk,
		Recommendation:    req.Recommendation,
		TagOrder:          req.TagOrder,
	}
	if err := db.Conn.Create(&vuln).Error; err != nil {
		logger.Errorf("Failed to create vulnerability: %v", err)
		return echo.ErrInternalServerError
	}

	actorID := ""
	if user, err := middlewares.GetSessionUser(c); err == nil {
		actorID = user.ID.String()
	}
	audit.Log(audit.Entry{
		Action:  "vuln.created",
		ActorID: actorID,
		IP:      c.RealIP(),
		Target:  map[string]any{"vulnerability_id": vuln.ID.String()},
	})

	return c.JSON(http.StatusCreated, vulnerabilityInfo(&vuln))
}

// UpdateVulnerabilityHandler godoc
// @Summary      Update a vulnerability
// @Tags         vulnerabilities
// @Accept       json
// @Produce      json
// @Param        vuln_id               path  string                true  "Vulnerability ID"
// @Param        vulnerabilityRequest  body  VulnerabilityRequest  true  "Vulnerability payload"
// @Success      200 {object} VulnerabilityInfo "Vulnerability updated"
// @Failure      400 {object} echo.HTTPError    "Bad request"
// @Failure      404 {object} echo.HTTPError    "Vulnerability not found"
// @Failure      500 {object} echo.HTTPError    "Internal server error"
// @Router       /api/vulns/{vuln_id} [put]
func UpdateVulnerabilityHandler(c echo.Context) error {
	logger := c.Logger()

	vuln, httpErr := findVulnerabilityByParam(c)
	if httpErr != nil {
		return httpErr
	}

	var req VulnerabilityRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid vulnerability payload:", err)
		return echo.ErrBadRequest
	}

	vuln.Name = req.Name
	vuln.Level = models.VulnerabilityLevel(req.Level)
	vuln.VulnType = models.VulnerabilityType(req.Type)
	vuln.Scope = req.Scope
	vuln.ProtocolInterface = req.ProtocolInterface
	vuln.CvssScore = req.CvssScore
	vuln.CvssVector = req.CvssVector
	vuln.Description = req.Description
	vuln.Risk = req.Risk
	vuln.Recommendation = req.Recommendation
	vuln.TagOrder = req.TagOrder

	if err := db.Conn.Save(vuln).Error; err != nil {
		logger.Errorf("Failed to update vulnerability: %v", err)
		return echo.ErrInternalServerError
	}
	return c.JSON(http.StatusOK, vulnerabilityInfo(vuln))
}

// DeleteVulnerabilityHandler godoc
// @Summary      Delete a vulnerability
// @Tags         vulnerabilities
// @Param        vuln_id  path  string  true  "Vulnerability ID"
// @Success      204 "Vulnerability deleted"
// @Failure      404 {object} echo.HTTPError "Vulnerability not found"
// @Failure      500 {object} echo.HTTPError "Internal server error"
// @Router       /api/vulns/{vuln_id} [delete]
func DeleteVulnerabilityHandler(c echo.Context) error {
	logger := c.Logger()

	vuln, httpErr := findVulnerabilityByParam(c)
	if httpErr != nil {
		return httpErr
	}

	if err := db.Conn.Delete(vuln).Error; err != nil {
		logger.Errorf("Failed to delete vulnerability: %v", err)
		return echo.ErrInternalServerError
	}
	return c.NoContent(http.StatusNoContent)
}

// BulkVulnerabilitiesHandler godoc
// @Summary      Bulk-fetch vulnerabilities
// @Description  Returns all vulnerabilities for external tool caches. Requires an API token with the read:vulns scope.
// @Tags         vulnerabilities
// @Produce      json
// @Security     BearerAuth
// @Param        updated_since  query  string  false  "ISO 8601 datetime"
// @Success      200 {array}  VulnerabilityInfo "Vulnerabilities"
// @Failure      400 {object} echo.HTTPError    "Invalid datetime format"
// @Failure      401 {object} echo.HTTPError    "Invalid token"
// @Failure      403 {object} echo.HTTPError    "Token missing required scope"
// @Router       /api/vulns/bulk [get]
func BulkVulnerabilitiesHandler(c echo.Context) error {
	logger := c.Logger()

	query := db.Conn.Model(&models.Vulnerability{})
	if since := c.QueryParam("updated_since"); since != "" {
		sinceTime, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return &echo.HTTPError{
				Code:    http.StatusBadRequest,
				Message: "Invalid datetime format. Use ISO 8601 (e.g., 2024-01-01T00:00:00Z)",
			}
		}
		query = query.Where("updated_at >= ?", sinceTime)
	}

	var vulns []models.Vulnerability
	if err := query.Order("name ASC").Find(&vulns).Error; err != nil {
		logger.Errorf("Failed to fetch vulnerabilities: %v", err)
		return echo.ErrInternalServerError
	}

	items := make([]VulnerabilityInfo, 0, len(vulns))
	for i := range vulns {
		items = append(items, vulnerabilityInfo(&vulns[i]))
	}
	return c.JSON(http.StatusOK, items)
}

// ExportVulnerabilityDocHandler godoc
// @Summary      Export a vulnerability for document insertion
// @Description  Returns one vulnerability in a flat format for external document tooling. Requires an API token with the export:doc scope.
// @Tags         vulnerabilities
// @Produce      json
// @Security     BearerAuth
// @Param        vuln_id  path  string  true  "Vulnerability ID"
// @Success      200 {object} VulnerabilityInfo "Export payload"
// @Failure      401 {object} echo.HTTPError    "Invalid token"
// @Failure      403 {object} echo.HTTPError    "Token missing required scope"
// @Failure      404 {object} echo.HTTPError    "Vulnerability not found"
// @Router       /api/vulns/{vuln_id}/exportdoc [get]
func ExportVulnerabilityDocHandler(c echo.Context) error {
	vuln, httpErr := findVulnerabilityByParam(c)
	if httpErr != nil {
		return httpErr
	}

	actorID := ""
	if token, err := middlewares.GetAPIToken(c); err == nil {
		actorID = token.OwnerUserID.String()
	}
	audit.Log(audit.Entry{
		Action:  "vuln.export_doc",
		ActorID: actorID,
		IP:      c.RealIP(),
		Target:  map[string]any{"vulnerability_id": vuln.ID.String()},
	})

	return c.JSON(http.StatusOK, vulnerabilityInfo(vuln))
}

func findVulnerabilityByParam(c echo.Context) (*models.Vulnerability, *echo.HTTPError) {
	vulnID, err := uuid.Parse(c.Param("vuln_id"))
	if err != nil {
		return nil, &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "Invalid vulnerability ID format",
		}
	}

	vuln := models.Vulnerability{}
	if err := db.Conn.Where("id = ?", vulnID).First(&vuln).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &echo.HTTPError{
				Code:    http.StatusNotFound,
				Message: "Vulnerability not found",
			}
		}
		c.Logger().Errorf("Failed to fetch vulnerability: %v", err)
		return nil, &echo.HTTPError{Code: http.StatusInternalServerError, Message: http.StatusText(http.StatusInternalServerError)}
	}
	return &vuln, nil
}
