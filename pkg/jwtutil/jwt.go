package jwtutil

import (
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/24ep/mdm-sub019/pkg/config"
)

var (
	secret          = []byte("mdm-engine-secret-key")
	expirationHours = 24
)

// Initialize configures the signing key and token lifetime from config.
func Initialize(cfg *config.JWTConfig) {
	if cfg.SigningKey != "" {
		secret = []byte(cfg.SigningKey)
	}
	if cfg.ExpirationHours > 0 {
		expirationHours = cfg.ExpirationHours
	}
}

// UserClaims carries the caller identity issued by the identity service:
// who the caller is and which spaces they may see. The engine never
// resolves users or spaces itself; it only trusts these claims.
type UserClaims struct {
	Email    string `json:"email"`
	UserID   uint   `json:"user_id"`
	SpaceIDs []uint `json:"space_ids,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken creates a JWT token carrying the caller's identity and
// allowed space set.
func GenerateToken(email string, userID uint, spaceIDs []uint) (string, error) {
	claims := UserClaims{
		Email:    email,
		UserID:   userID,
		SpaceIDs: spaceIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(expirationHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken validates and parses the JWT token
func ValidateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}
