package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"userhistory/api/logger"
	"userhistory/api/utils"
)

// AuthRequired admits staff holding a valid JWT (cookie or bearer header), or any caller
// presenting apiKey in X-API-KEY when apiKey is configured.
func AuthRequired(apiKey string, log *logger.Logger) gin.HandlerFunc {
	log = log.With("middleware", "AuthRequired")
	return func(c *gin.Context) {
		if apiKey != "" && subtle.ConstantTimeCompare([]byte(c.GetHeader("X-API-KEY")), []byte(apiKey)) == 1 {
			c.Next()
			return
		}
		tokenString, err := c.Cookie("jwt_token")
		if err != nil || tokenString == "" {
			tokenString = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
			if tokenString == "" {
				log.Debug("No JWT token found in cookie or header", "path", c.FullPath())
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: No token provided"})
				return
			}
		}
		claims, err := utils.ValidateJWT(tokenString)
		if err != nil {
			log.Info("Invalid JWT token", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid or expired token"})
			return
		}

		c.Set("staff_id", claims.StaffID)
		c.Set("staff_email", claims.Email)

		log.Debug("Staff authenticated", "staff_id", claims.StaffID, "email", claims.Email)
		c.Next()
	}
}
