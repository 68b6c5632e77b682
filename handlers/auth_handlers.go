// api/handlers/auth_handlers.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"userhistory/api/logger"
	"userhistory/api/models"
	"userhistory/api/utils"
)

const (
	authCookieName = "jwt_token"
	sessionTTL     = 24 * time.Hour
)

// StaffLookup finds staff accounts by email.
type StaffLookup interface {
	GetStaffByEmail(ctx context.Context, email string) (*models.StaffUser, error)
}

type AuthHandlers struct {
	Staff StaffLookup
	log   *logger.Logger
}

func NewAuthHandlers(staff StaffLookup, log *logger.Logger) *AuthHandlers {
	return &AuthHandlers{Staff: staff, log: log.With("handler", "AuthHandlers")}
}

// Login handles staff authentication and JWT token creation.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	user, err := h.Staff.GetStaffByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.log.Info("Login failed", "email", req.Email, "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(req.Password)); err != nil {
		h.log.Info("Login failed: password mismatch", "email", req.Email)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	tokenString, err := utils.GenerateJWT(user, sessionTTL)
	if err != nil {
		h.log.Error("Failed to generate JWT", "staff_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate authentication token"})
		return
	}

	c.SetCookie(
		authCookieName,
		tokenString,
		int(sessionTTL/time.Second),
		"/",
		"",
		false,
		true,
	)

	h.log.Info("Staff logged in", "staff_id", user.ID, "email", user.Email)
	c.JSON(http.StatusOK, gin.H{
		"message":    "Login successful",
		"user_email": user.Email,
	})
}

func (h *AuthHandlers) Logout(c *gin.Context) {
	// Clear the JWT cookie by setting its MaxAge to -1 (immediately expire).
	c.SetCookie(
		authCookieName,
		"",
		-1,
		"/",
		"",
		false,
		true,
	)

	h.log.Info("Staff logged out")
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
