package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims identify a staff member. Guests never carry tokens; their calls
// are scoped by the table-session header instead.
type Claims struct {
	StaffID      uuid.UUID `json:"staff_id"`
	RestaurantID string    `json:"restaurant_id"`
	UnitID       string    `json:"unit_id,omitempty"`
	Role         string    `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken mints a staff bearer token.
func GenerateToken(secret string, staffID uuid.UUID, restaurantID, unitID, role string) (string, error) {
	claims := Claims{
		StaffID:      staffID,
		RestaurantID: restaurantID,
		UnitID:       unitID,
		Role:         role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(12 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken parses and verifies a staff token.
func ValidateToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
