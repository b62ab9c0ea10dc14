package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// ChildClaims are the claims carried by a child device token. The token is
// minted by the child's parent and pins the child identity used for the
// ownership checks on toggles and redemption requests.
type ChildClaims struct {
	ChildID  int64 `json:"child_id"`
	ParentID int64 `json:"parent_id"`
	jwt.RegisteredClaims
}

// JWTService signs and validates child device tokens.
type JWTService struct {
	secretKey []byte
	issuer    string
	ttl       time.Duration
}

func NewJWTService(secretKey, issuer string, ttl time.Duration) *JWTService {
	return &JWTService{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		ttl:       ttl,
	}
}

// GenerateChildToken creates a signed token identifying a child device.
func (s *JWTService) GenerateChildToken(childID, parentID int64) (string, error) {
	now := time.Now()
	claims := ChildClaims{
		ChildID:  childID,
		ParentID: parentID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ValidateToken parses a child token and returns its claims.
func (s *JWTService) ValidateToken(tokenString string) (*ChildClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ChildClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*ChildClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
