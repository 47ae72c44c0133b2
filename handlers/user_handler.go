// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"errors"
	"net/http"
	"strings"
	"vulnmgr-server/audit"
	"vulnmgr-server/crypto"
	"vulnmgr-server/db"
	"vulnmgr-server/middlewares"
	"vulnmgr-server/models"
	"vulnmgr-server/passwordcheck"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// ListUsersHandler godoc
// @Summary      List users
// @Description  Returns all users with their roles and status (admin only).
// @Tags         users
// @Produce      json
// @Success      200 {object} UserListResponse "Users retrieved successfully"
// @Failure      401 {object} echo.HTTPError   "Unauthorized"
// @Failure      403 {object} echo.HTTPError   "Admin privileges required"
// @Failure      500 {object} echo.HTTPError   "Internal server error"
// @Router       /api/users [get]
func ListUsersHandler(c echo.Context) error {
	logger := c.Logger()

	var users []models.User
	if err := db.Conn.Order("created_at DESC").Find(&users).Error; err != nil {
		logger.Errorf("Failed to fetch users: %v", err)
		return echo.ErrInternalServerError
	}

	infos := make([]UserInfo, 0, len(users))
	for i := range users {
		infos = append(infos, userInfo(&users[i]))
	}
	return c.JSON(http.StatusOK, UserListResponse{
		Users:   infos,
		Total:   int64(len(users)),
		Message: "Users retrieved successfully",
	})
}

// CreateUserHandler godoc
// @Summary      Create a user
// @Description  Creates a new user account (admin only).
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        createUserRequest  body  CreateUserRequest  true  "User creation payload"
// @Success      201 {object} UserInfo       "User created"
// @Failure      400 {object} echo.HTTPError "Bad request"
// @Failure      409 {object} echo.HTTPError "Email or username already in use"
// @Failure      500 {object} echo.HTTPError "Internal server error"
// @Router       /api/users [post]
func CreateUserHandler(c echo.Context) error {
	logger := c.Logger()

	var req CreateUserRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid user creation payload:", err)
		return echo.ErrBadRequest
	}

	if req.Username == "" && req.Email == "" {
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "username or email field is required",
		}
	}
	if req.Password == "" {
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "password field is required",
		}
	}

	role := models.UserRole(req.Role)
	if req.Role == "" {
		role = models.RoleViewer
	}
	if role != models.RoleViewer && role != models.RoleEditor && role != models.RoleAdmin {
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "Invalid role: " + req.Role,
		}
	}

	if err := passwordcheck.ValidatePassword(c.Request().Context(), req.Password); err != nil {
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: err.Error(),
		}
	}

	username := req.Username
	if username == "" {
		username, _, _ = strings.Cut(req.Email, "@")
	}

	hash, err := crypto.NewCrypto().HashPassword(req.Password)
	if err != nil {
		logger.Errorf("Failed to hash password: %v", err)
		return echo.ErrInternalServerError
	}

	user := models.User{
		Username:     username,
		FullName:     req.FullName,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if req.Email != "" {
		user.Email = &req.Email
	}
	if err := db.Conn.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return &echo.HTTPError{
				Code:    http.StatusConflict,
				Message: "Email or username already in use",
			}
		}
		logger.Errorf("Failed to create user: %v", err)
		return echo.ErrInternalServerError
	}

	actorID := ""
	if admin, err := middlewares.GetSessionUser(c); err == nil {
		actorID = admin.ID.String()
	}
	audit.Log(audit.Entry{
		Action:  "user.created",
		ActorID: actorID,
		IP:      c.RealIP(),
		Target:  map[string]any{"user_id": user.ID.String(), "role": string(user.Role)},
	})

	return c.JSON(http.StatusCreated, userInfo(&user))
}

// UpdateUserHandler godoc
// @Summary      Update a user
// @Description  Updates a user's full name, role or active flag (admin only).
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        user_id            path  string             true  "User ID"
// @Param        updateUserRequest  body  UpdateUserRequest  true  "Fields to update"
// @Success      200 {object} UserInfo       "User updated"
// @Failure      400 {object} echo.HTTPError "Bad request"
// @Failure      404 {object} echo.HTTPError "User not found"
// @Failure      500 {object} echo.HTTPError "Internal server error"
// @Router       /api/users/{user_id} [put]
func UpdateUserHandler(c echo.Context) error {
	logger := c.Logger()

	user, httpErr := findUserByParam(c)
	if httpErr != nil {
		return httpErr
	}

	var req UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid user update payload:", err)
		return echo.ErrBadRequest
	}

	updates := map[string]any{}
	if req.FullName != nil {
		updates["full_name"] = *req.FullName
	}
	if req.Role != nil {
		role := models.UserRole(*req.Role)
		if role != models.RoleViewer && role != models.RoleEditor && role != models.RoleAdmin {
			return &echo.HTTPError{
				Code:    http.StatusBadRequest,
				Message: "Invalid role: " + *req.Role,
			}
		}
		updates["role"] = role
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := db.Conn.Model(user).Updates(updates).Error; err != nil {
			logger.Errorf("Failed to update user: %v", err)
			return echo.ErrInternalServerError
		}
	}

	return c.JSON(http.StatusOK, userInfo(user))
}

// DeleteUserHandler godoc
// @Summary      Delete a user
// @Description  Deletes a user account; their sessions and API tokens are removed by cascade (admin only). Admins cannot delete themselves.
// @Tags         users
// @Param        user_id  path  string  true  "User ID"
// @Success      204 "User deleted"
// @Failure      400 {object} echo.HTTPError "Bad request"
// @Failure      404 {object} echo.HTTPError "User not found"
// @Failure      500 {object} echo.HTTPError "Internal server error"
// @Router       /api/users/{user_id} [delete]
func DeleteUserHandler(c echo.Context) error {
	logger := c.Logger()

	user, httpErr := findUserByParam(c)
	if httpErr != nil {
		return httpErr
	}

	admin, err := middlewares.GetSessionUser(c)
	if err == nil && admin.ID == user.ID {
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "Cannot delete your own account",
		}
	}

	if err := db.Conn.Delete(user).Error; err != nil {
		logger.Errorf("Failed to delete user: %v", err)
		return echo.ErrInternalServerError
	}

	actorID := ""
	if admin != nil {
		actorID = admin.ID.String()
	}
	audit.Log(audit.Entry{
		Action:  "user.deleted",
		ActorID: actorID,
		IP:      c.RealIP(),
		Target:  map[string]any{"user_id": user.ID.String()},
	})

	return c.NoContent(http.StatusNoContent)
}

// ChangeMyPasswordHandler godoc
// @Summary      Change own password
// @Description  Changes the authenticated user's password after verifying the current one.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        changePasswordRequest  body  ChangePasswordRequest  true  "Password change payload"
// @Success      200 {object} GenericResponse "Password changed"
// @Failure      400 {object} echo.HTTPError  "Bad request"
// @Failure      401 {object} echo.HTTPError  "Current password incorrect"
// @Failure      500 {object} echo.HTTPError  "Internal server error"
// @Router       /api/users/me/password [put]
func ChangeMyPasswordHandler(c echo.Context) error {
	logger := c.Logger()

	user, err := middlewares.GetSessionUser(c)
	if err != nil {
		return &echo.HTTPError{Code: http.StatusUnauthorized, Message: "Not authenticated"}
	}

	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid password change payload:", err)
		return echo.ErrBadRequest
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "current_password and new_password fields are required",
		}
	}

	newCrypto := crypto.NewCrypto()
	if err := newCrypto.VerifyPassword(req.CurrentPassword, user.PasswordHash); err != nil {
		return &echo.HTTPError{
			Code:    http.StatusUnauthorized,
			Message: "Current password is incorrect",
		}
	}

	if err := passwordcheck.ValidatePassword(c.Request().Context(), req.NewPassword); err != nil {
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: err.Error(),
		}
	}

	hash, err := newCrypto.HashPassword(req.NewPassword)
	if err != nil {
		logger.Errorf("Failed to hash password: %v", err)
		return echo.ErrInternalServerError
	}

	if err := db.Conn.Model(user).Update("password_hash", hash).Error; err != nil {
		logger.Errorf("Failed to update password: %v", err)
		return echo.ErrInternalServerError
	}

	audit.Log(audit.Entry{
		Action:  "user.password_changed",
		ActorID: user.ID.String(),
		IP:      c.RealIP(),
	})

	return c.JSON(http.StatusOK, GenericResponse{Message: "Password changed successfully"})
}

func findUserByParam(c echo.Context) (*models.User, *echo.HTTPError) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return nil, &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "Invalid user ID format",
		}
	}

	user := models.User{}
	if err := db.Conn.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &echo.HTTPError{
				Code:    http.StatusNotFound,
				Message: "User not found",
			}
		}
		c.Logger().Errorf("Failed to fetch user: %v", err)
		return nil, &echo.HTTPError{Code: http.StatusInternalServerError, Message: http.StatusText(http.StatusInternalServerError)}
	}
	return &user, nil
}
