// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"errors"
	"net/http"
	"time"
	"vulnmgr-server/audit"
	"vulnmgr-server/commons"
	"vulnmgr-server/crypto"
	"vulnmgr-server/db"
	"vulnmgr-server/middlewares"
	"vulnmgr-server/models"
	"vulnmgr-server/sessions"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

func sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     middlewares.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   commons.GetEnv("ENVIRONMENT", "development") == "production",
	}
}

// LoginHandler godoc
// @Summary      Login a user
// @Description  Authenticates a user and sets an HttpOnly session cookie.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        loginRequest  body  LoginRequest  true  "Login request payload"
// @Success      200 {object} LoginResponse      "Login successful"
// @Failure      400 {object} echo.HTTPError     "Bad request, missing required fields"
// @Failure      401 {object} echo.HTTPError     "Unauthorized"
// @Failure      403 {object} echo.HTTPError     "User account is inactive"
// @Failure      429 {object} echo.HTTPError     "Too many requests"
// @Failure      500 {object} echo.HTTPError     "Internal server error"
// @Router       /api/auth/login [post]
func LoginHandler(c echo.Context) error {
	logger := c.Logger()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid login request payload:", err)
		return echo.ErrBadRequest
	}

	if req.Email == "" && req.Username == "" {
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "email or username field is required",
		}
	}
	if req.Password == "" {
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "password field is required",
		}
	}

	user := models.User{}
	var err error
	if req.Email != "" {
		err = db.Conn.Where("email = ?", req.Email).First(&user).Error
	} else {
		err = db.Conn.Where("username = ?", req.Username).First(&user).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("User not found.")
			return &echo.HTTPError{
				Code:    http.StatusUnauthorized,
				Message: "Incorrect email or password",
			}
		}
		logger.Errorf("Failed to find user: %v", err)
		return echo.ErrInternalServerError
	}

	newCrypto := crypto.NewCrypto()
	if err := newCrypto.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		logger.Error("Password verification failed.")
		audit.Log(audit.Entry{
			Action:  "auth.login",
			Status:  "failure",
			ActorID: user.ID.String(),
			IP:      c.RealIP(),
		})
		return &echo.HTTPError{
			Code:    http.StatusUnauthorized,
			Message: "Incorrect email or password",
		}
	}

	if !user.IsActive {
		logger.Error("Inactive user attempted login.")
		return &echo.HTTPError{
			Code:    http.StatusForbidden,
			Message: "User account is inactive",
		}
	}

	ip := c.RealIP()
	userAgent := c.Request().UserAgent()
	var ipPtr, uaPtr *string
	if ip != "" {
		ipPtr = &ip
	}
	if userAgent != "" {
		uaPtr = &userAgent
	}

	manager := sessions.NewManager()
	signedToken, session, err := manager.Create(&user, ipPtr, uaPtr)
	if err != nil {
		logger.Errorf("Failed to create session: %v", err)
		return echo.ErrInternalServerError
	}

	c.SetCookie(sessionCookie(signedToken, int(manager.Lifetime().Seconds())))

	audit.Log(audit.Entry{
		Action:    "auth.login",
		ActorID:   user.ID.String(),
		IP:        ip,
		UserAgent: userAgent,
		Target:    map[string]any{"session_id": session.ID.String()},
	})

	return c.JSON(http.StatusOK, LoginResponse{
		User:    userInfo(&user),
		Message: "Login successful",
	})
}

// LogoutHandler godoc
// @Summary      Logout a user
// @Description  Invalidates the current session and clears the cookie. Logging out with a missing or invalid cookie is a no-op success.
// @Tags         auth
// @Produce      json
// @Success      200 {object} GenericResponse "Logout successful"
// @Failure      500 {object} echo.HTTPError  "Internal server error"
// @Router       /api/auth/logout [post]
func LogoutHandler(c echo.Context) error {
	logger := c.Logger()

	var signedToken string
	if cookie, err := c.Cookie(middlewares.SessionCookieName); err == nil {
		signedToken = cookie.Value
	}

	manager := sessions.NewManager()
	session, err := manager.Invalidate(signedToken)
	if err != nil {
		logger.Errorf("Failed to invalidate session: %v", err)
		return echo.ErrInternalServerError
	}

	c.SetCookie(sessionCookie("", -1))

	if session != nil {
		audit.Log(audit.Entry{
			Action:  "auth.logout",
			ActorID: session.UserID.String(),
			IP:      c.RealIP(),
			Target:  map[string]any{"session_id": session.ID.String()},
		})
	}

	return c.JSON(http.StatusOK, GenericResponse{Message: "Logout successful"})
}

// MeHandler godoc
// @Summary      Get current user
// @Description  Returns the user behind the current session.
// @Tags         auth
// @Produce      json
// @Success      200 {object} UserInfo       "Current user"
// @Failure      401 {object} echo.HTTPError "Unauthorized"
// @Router       /api/auth/me [get]
func MeHandler(c echo.Context) error {
	user, err := middlewares.GetSessionUser(c)
	if err != nil {
		return &echo.HTTPError{
			Code:    http.StatusUnauthorized,
			Message: "Not authenticated",
		}
	}
	return c.JSON(http.StatusOK, userInfo(user))
}

// GetSessionsHandler godoc
// @Summary      List own sessions
// @Description  Retrieves the authenticated user's sessions, newest activity first.
// @Tags         auth
// @Produce      json
// @Param        page      query  int  false  "Page number (default 1)"
// @Param        page_size query  int  false  "Page size (default 10, max 100)"
// @Success      200 {object} SessionListResponse "Paginated list of sessions"
// @Failure      401 {object} echo.HTTPError      "Unauthorized"
// @Failure      500 {object} echo.HTTPError      "Internal server error"
// @Router       /api/auth/sessions [get]
func GetSessionsHandler(c echo.Context) error {
	logger := c.Logger()

	user, err := middlewares.GetSessionUser(c)
	if err != nil {
		return &echo.HTTPError{
			Code:    http.StatusUnauthorized,
			Message: "Not authenticated",
		}
	}
	currentSession, _ := middlewares.GetSession(c)

	page, pageSize := paginationParams(c, 10, 100)

	var total int64
	if err := db.Conn.Model(&models.Session{}).Where("user_id = ?", user.ID).Count(&total).Error; err != nil {
		logger.Errorf("Failed to count sessions: %v", err)
		return echo.ErrInternalServerError
	}

	var userSessions []models.Session
	if err := db.Conn.Where("user_id = ?", user.ID).
		Order("last_seen_at DESC, created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&userSessions).Error; err != nil {
		logger.Errorf("Failed to fetch sessions: %v", err)
		return echo.ErrInternalServerError
	}

	details := make([]SessionDetails, 0, len(userSessions))
	for _, session := range userSessions {
		detail := SessionDetails{
			ID:        session.ID,
			CreatedAt: session.CreatedAt.Format(time.RFC3339),
			ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
			IPAddress: session.IPAddress,
			UserAgent: session.UserAgent,
			IsActive:  session.IsActive,
		}
		if currentSession != nil && currentSession.ID == session.ID {
			detail.IsCurrent = true
		}
		if !session.ExpiresAt.After(time.Now()) {
			detail.IsExpired = true
		}
		if session.LastSeenAt != nil {
			lastSeen := session.LastSeenAt.Format(time.RFC3339)
			detail.LastSeenAt = &lastSeen
		}
		details = append(details, detail)
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return c.JSON(http.StatusOK, SessionListResponse{
		Data: details,
		Pagination: PaginationDetails{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
		},
		Message: "Sessions retrieved successfully",
	})
}

// RevokeSessionHandler godoc
// @Summary      Revoke one of your sessions
// @Description  Deactivates a specific session by ID, logging that device out. The current session cannot be revoked here - use logout instead.
// @Tags         auth
// @Produce      json
// @Param        session_id  path  string  true  "Session ID"
// @Success      200 {object} GenericResponse "Session revoked successfully"
// @Failure      400 {object} echo.HTTPError  "Bad request"
// @Failure      401 {object} echo.HTTPError  "Unauthorized"
// @Failure      404 {object} echo.HTTPError  "Session not found"
// @Failure      500 {object} echo.HTTPError  "Internal server error"
// @Router       /api/auth/sessions/{session_id} [delete]
func RevokeSessionHandler(c echo.Context) error {
	logger := c.Logger()

	user, err := middlewares.GetSessionUser(c)
	if err != nil {
		return &echo.HTTPError{
			Code:    http.StatusUnauthorized,
			Message: "Not authenticated",
		}
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "Invalid session ID format",
		}
	}

	currentSession, _ := middlewares.GetSession(c)
	if currentSession != nil && currentSession.ID == sessionID {
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "Cannot revoke current session. Use logout endpoint instead.",
		}
	}

	session := models.Session{}
	if err := db.Conn.Where("id = ? AND user_id = ?", sessionID, user.ID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &echo.HTTPError{
				Code:    http.StatusNotFound,
				Message: "Session not found",
			}
		}
		logger.Errorf("Failed to fetch session: %v", err)
		return echo.ErrInternalServerError
	}

	if err := db.Conn.Model(&session).Update("is_active", false).Error; err != nil {
		logger.Errorf("Failed to revoke session: %v", err)
		return echo.ErrInternalServerError
	}

	audit.Log(audit.Entry{
		Action:  "auth.session_revoked",
		ActorID: user.ID.String(),
		IP:      c.RealIP(),
		Target:  map[string]any{"session_id": session.ID.String()},
	})

	return c.JSON(http.StatusOK, GenericResponse{Message: "Session revoked successfully"})
}

func paginationParams(c echo.Context, defaultSize, maxSize int) (page, pageSize int) {
	page = 1
	pageSize = defaultSize
	if p := c.QueryParam("page"); p != "" {
		if v, err := parsePositiveInt(p); err == nil {
			page = v
		}
	}
	if ps := c.QueryParam("page_size"); ps != "" {
		if v, err := parsePositiveInt(ps); err == nil {
			pageSize = v
		}
	}
	if pageSize > maxSize {
		pageSize = maxSize
	}
	return page, pageSize
}
