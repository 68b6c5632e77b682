package utils

import (
	"fmt"
	"os"
	"time"

	"userhistory/api/models"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identifies the staff member behind an admin request.
type Claims struct {
	StaffID int    `json:"staff_id"`
	Email   string `json:"email"`
	jwt.RegisteredClaims
}

const jwtIssuer = "userhistory-api"

// The secret is read on use so a .env loaded after package init still applies.
func jwtSecret() []byte {
	return []byte(os.Getenv("JWT_SECRET_KEY"))
}

// GenerateJWT generates a new JWT token for a staff member.
func GenerateJWT(staff *models.StaffUser, ttl time.Duration) (string, error) {
	if len(jwtSecret()) == 0 {
		return "", fmt.Errorf("JWT_SECRET_KEY is not set")
	}
	now := time.Now()

	claims := &Claims{
		StaffID: staff.ID,
		Email:   staff.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    jwtIssuer,
			Subject:   fmt.Sprintf("%d", staff.ID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(jwtSecret())
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT parses and validates a JWT token string.
func ValidateJWT(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret(), nil
	}, jwt.WithIssuer(jwtIssuer))

	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}

	return claims, nil
}
