// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"time"
	"vulnmgr-server/models"

	"github.com/google/uuid"
)

// swagger:model LoginRequest
type LoginRequest struct {
	// User's email address (either email or username is required)
	Email string `json:"email" example:"user@example.com"`
	// User's username
	Username string `json:"username" example:"user"`
	// User's password
	Password string `json:"password" example:"MySecretPassword@123"`
}

// swagger:model UserInfo
type UserInfo struct {
	ID       uuid.UUID       `json:"id"`
	Email    *string         `json:"email"`
	Username string          `json:"username"`
	FullName string          `json:"full_name"`
	Role     models.UserRole `json:"role"`
	IsActive bool            `json:"is_active"`
}

// swagger:model LoginResponse
type LoginResponse struct {
	User UserInfo `json:"user"`
	// Message indicating successful operation
	Message string `json:"message" example:"Login successful"`
}

// swagger:model GenericResponse
type GenericResponse struct {
	Message string `json:"message" example:"Operation successful"`
}

// swagger:model PaginationDetails
type PaginationDetails struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// swagger:model SessionDetails
type SessionDetails struct {
	ID         uuid.UUID `json:"id"`
	CreatedAt  string    `json:"created_at" example:"2023-10-01T12:00:00Z"`
	ExpiresAt  string    `json:"expires_at" example:"2023-10-02T12:00:00Z"`
	LastSeenAt *string   `json:"last_seen_at"`
	IPAddress  *string   `json:"ip_address"`
	UserAgent  *string   `json:"user_agent"`
	IsActive   bool      `json:"is_active"`
	IsCurrent  bool      `json:"is_current"`
	IsExpired  bool      `json:"is_expired"`
}

// swagger:model SessionListResponse
type SessionListResponse struct {
	Data       []SessionDetails  `json:"data"`
	Pagination PaginationDetails `json:"pagination"`
	Message    string            `json:"message" example:"Sessions retrieved successfully"`
}

// swagger:model CreateTokenRequest
type CreateTokenRequest struct {
	// Human-readable label for the token
	Label string `json:"label" example:"Word macro"`
	// Capability scopes, non-empty (read:vulns, write:vulns, export:doc)
	Scopes []string `json:"scopes" example:"read:vulns,export:doc"`
	// Optional expiration; defaults to TOKEN_DEFAULT_LIFETIME_DAYS from now
	ExpiresAt *time.Time `json:"expires_at"`
}

// swagger:model TokenInfo
type TokenInfo struct {
	ID          uuid.UUID  `json:"id"`
	OwnerUserID uuid.UUID  `json:"owner_user_id"`
	Label       string     `json:"label"`
	Scopes      []string   `json:"scopes"`
	ExpiresAt   *time.Time `json:"expires_at"`
	RevokedAt   *time.Time `json:"revoked_at"`
	LastUsedAt  *time.Time `json:"last_used_at"`
	LastUsedIP  *string    `json:"last_used_ip"`
	CreatedAt   time.Time  `json:"created_at"`
	IsValid     bool       `json:"is_valid"`
}

// swagger:model TokenWithSecret
type TokenWithSecret struct {
	TokenInfo
	// The plaintext bearer token; surfaced exactly once
	Token string `json:"token" example:"vm_0123456789abcdef"`
}

// swagger:model TokenListResponse
type TokenListResponse struct {
	Data    []TokenInfo `json:"data"`
	Message string      `json:"message" example:"Tokens retrieved successfully"`
}

// swagger:model CreateUserRequest
type CreateUserRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Username string `json:"username" example:"user"`
	FullName string `json:"full_name" example:"Jane Doe"`
	Password string `json:"password" example:"MySecretPassword@123"`
	Role     string `json:"role" example:"viewer"`
}

// swagger:model UpdateUserRequest
type UpdateUserRequest struct {
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

// swagger:model ChangePasswordRequest
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// swagger:model UserListResponse
type UserListResponse struct {
	Users   []UserInfo `json:"users"`
	Total   int64      `json:"total"`
	Message string     `json:"message" example:"Users retrieved successfully"`
}

// swagger:model VulnerabilityRequest
type VulnerabilityRequest struct {
	Name              string   `json:"name" example:"Reflected XSS in search"`
	Level             string   `json:"level" example:"high"`
	Type              string   `json:"type" example:"web"`
	Scope             *string  `json:"scope"`
	ProtocolInterface *string  `json:"protocol_interface"`
	CvssScore         *float64 `json:"cvss_score"`
	CvssVector        *string  `json:"cvss_vector"`
	Description       string   `json:"description"`
	Risk              string   `json:"risk"`
	Recommendation    string   `json:"recommendation"`
	TagOrder          *string  `json:"tag_order"`
}

// swagger:model VulnerabilityInfo
type VulnerabilityInfo struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Level             string    `json:"level"`
	Type              string    `json:"type"`
	Scope             *string   `json:"scope"`
	ProtocolInterface *string   `json:"protocol_interface"`
	CvssScore         *float64  `json:"cvss_score"`
	CvssVector        *string   `json:"cvss_vector"`
	Description       string    `json:"description"`
	Risk              string    `json:"risk"`
	Recommendation    string    `json:"recommendation"`
	TagOrder          *string   `json:"tag_order"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// swagger:model VulnerabilityListResponse
type VulnerabilityListResponse struct {
	Items   []VulnerabilityInfo `json:"items"`
	Total   int64               `json:"total"`
	Page    int                 `json:"page"`
	PerPage int                 `json:"per_page"`
}

func userInfo(user *models.User) UserInfo {
	return UserInfo{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
		FullName: user.FullName,
		Role:     user.Role,
		IsActive: user.IsActive,
	}
}

func tokenInfo(token *models.ApiToken) TokenInfo {
	return TokenInfo{
		ID:          token.ID,
		OwnerUserID: token.OwnerUserID,
		Label:       token.Label,
		Scopes:      token.Scopes,
		ExpiresAt:   token.ExpiresAt,
		RevokedAt:   token.RevokedAt,
		LastUsedAt:  token.LastUsedAt,
		LastUsedIP:  token.LastUsedIP,
		CreatedAt:   token.CreatedAt,
		IsValid:     token.IsValid(),
	}
}

func vulnerabilityInfo(vuln *models.Vulnerability) VulnerabilityInfo {
	return VulnerabilityInfo{
		ID:                vuln.ID,
		Name:              vuln.Name,
		Level:             string(vuln.Level),
		Type:              string(vuln.VulnType),
		Scope:             vuln.Scope,
		ProtocolInterface: vuln.ProtocolInterface,
		CvssScore:         vuln.CvssScore,
		CvssVector:        vuln.CvssVector,
		Description:       vuln.Description,
		Risk:              vuln.Risk,
		Recommendation:    vuln.Recommendation,
		TagOrder:          vuln.TagOrder,
		CreatedAt:         vuln.CreatedAt,
		UpdatedAt:         vuln.UpdatedAt,
	}
}
