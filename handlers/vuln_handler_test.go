// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"vulnmgr-server/crypto"
	"vulnmgr-server/db"
	"vulnmgr-server/middlewares"
	"vulnmgr-server/models"

	"github.com/labstack/echo/v4"
)

func seedVulnerability(t *testing.T, name string, level models.VulnerabilityLevel, vulnType models.VulnerabilityType) *models.Vulnerability {
	t.Helper()
	vuln := models.Vulnerability{
		Name:           name,
		Level:          level,
		VulnType:       vulnType,
		Description:    "description of " + name,
		Risk:           "risk of " + name,
		Recommendation: "fix " + name,
	}
	if err := db.Conn.Create(&vuln).Error; err != nil {
		t.Fatalf("Failed to seed vulnerability: %v", err)
	}
	return &vuln
}

func seedBearerToken(t *testing.T, scopes []string) string {
	t.Helper()
	owner := createAccount(t, "tokenowner", "Str0ng!Pass", models.RoleAdmin, true)
	plaintext, err := crypto.GenerateAPIToken()
	if err != nil {
		t.Fatalf("GenerateAPIToken failed: %v", err)
	}
	token := models.ApiToken{
		Label:       "test",
		TokenHash:   crypto.HashToken(plaintext),
		Scopes:      scopes,
		OwnerUserID: owner.ID,
	}
	if err := db.Conn.Create(&token).Error; err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}
	return plaintext
}

func newVulnTestServer() *echo.Echo {
	e := echo.New()
	e.GET("/api/vulns", SearchVulnerabilitiesHandler)
	e.GET("/api/vulns/bulk", BulkVulnerabilitiesHandler, middlewares.TokenAuth("read:vulns"))
	e.GET("/api/vulns/:vuln_id/exportdoc", ExportVulnerabilityDocHandler, middlewares.TokenAuth("export:doc"))
	return e
}

func getJSON(e *echo.Echo, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSearchVulnerabilitiesFilters(t *testing.T) {
	setupTestDB(t)
	seedVulnerability(t, "Reflected XSS", models.LevelHigh, models.TypeWeb)
	seedVulnerability(t, "Weak TLS config", models.LevelMedium, models.TypeInfrastructure)
	seedVulnerability(t, "Debug UART exposed", models.LevelHigh, models.TypeHardware)
	e := newVulnTestServer()

	cases := []struct {
		path string
		want int
	}{
		{"/api/vulns", 3},
		{"/api/vulns?level=high", 2},
		{"/api/vulns?type=web", 1},
		{"/api/vulns?level=high&type=hardware", 1},
		{"/api/vulns?q=XSS", 1},
		{"/api/vulns?q=nomatch", 0},
	}
	for _, tc := range cases {
		rec := getJSON(e, tc.path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", tc.path, rec.Code)
		}
		var resp VulnerabilityListResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("GET %s: failed to parse response: %v", tc.path, err)
		}
		if int(resp.Total) != tc.want {
			t.Errorf("GET %s: expected %d results, got %d", tc.path, tc.want, resp.Total)
		}
	}
}

func TestBulkVulnerabilitiesRequiresReadScope(t *testing.T) {
	setupTestDB(t)
	seedVulnerability(t, "Reflected XSS", models.LevelHigh, models.TypeWeb)
	e := newVulnTestServer()

	if rec := getJSON(e, "/api/vulns/bulk", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", rec.Code)
	}

	wrongScope := seedBearerToken(t, []string{"export:doc"})
	if rec := getJSON(e, "/api/vulns/bulk", wrongScope); rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for wrong scope, got %d", rec.Code)
	}
}

func TestBulkVulnerabilitiesUpdatedSince(t *testing.T) {
	setupTestDB(t)
	seedVulnerability(t, "Reflected XSS", models.LevelHigh, models.TypeWeb)
	bearer := seedBearerToken(t, []string{"read:vulns"})
	e := newVulnTestServer()

	rec := getJSON(e, "/api/vulns/bulk", bearer)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var items []VulnerabilityInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 vulnerability, got %d", len(items))
	}

	future := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)
	rec = getJSON(e, "/api/vulns/bulk?updated_since="+future, bearer)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	items = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("Expected no vulnerabilities updated in the future, got %d", len(items))
	}

	if rec := getJSON(e, "/api/vulns/bulk?updated_since=yesterday", bearer); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed datetime, got %d", rec.Code)
	}
}

func TestExportVulnerabilityDoc(t *testing.T) {
	setupTestDB(t)
	vuln := seedVulnerability(t, "Reflected XSS", models.LevelHigh, models.TypeWeb)
	bearer := seedBearerToken(t, []string{"export:doc"})
	e := newVulnTestServer()

	rec := getJSON(e, "/api/vulns/"+vuln.ID.String()+"/exportdoc", bearer)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var info VulnerabilityInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if info.ID != vuln.ID {
		t.Errorf("Expected vulnerability %s, got %s", vuln.ID, info.ID)
	}

	rec = getJSON(e, "/api/vulns/9e8376f6-0000-0000-0000-000000000000/exportdoc", bearer)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown vulnerability, got %d", rec.Code)
	}
}
