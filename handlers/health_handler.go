// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"net/http"
	"vulnmgr-server/db"

	"github.com/labstack/echo/v4"
)

// RootHandler godoc
// @Summary      API root
// @Tags         meta
// @Produce      json
// @Success      200 {object} GenericResponse "Service banner"
// @Router       / [get]
func RootHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, GenericResponse{Message: "vulnmgr-server API"})
}

// HealthHandler godoc
// @Summary      Health check
// @Description  Reports service and database health for load balancers and probes.
// @Tags         meta
// @Produce      json
// @Success      200 {object} map[string]string "Service is healthy"
// @Failure      503 {object} map[string]string "Database unreachable"
// @Router       /health [get]
func HealthHandler(c echo.Context) error {
	sqlDB, err := db.Conn.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		c.Logger().Errorf("Health check failed: %v", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":   "degraded",
			"database": "unreachable",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":   "ok",
		"database": "ok",
	})
}
