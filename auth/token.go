package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"msgboard/domain"
)

// Claims is the data stored inside a signed token. Username is carried
// alongside the id so sessions can report it without a store lookup.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenManager signs and validates the HS256 bearer tokens used by both
// the websocket upgrade and the REST surface. The key comes from
// configuration; it is never hardcoded.
type TokenManager struct {
	key      []byte
	duration time.Duration
}

func NewTokenManager(key string, duration time.Duration) *TokenManager {
	return &TokenManager{key: []byte(key), duration: duration}
}

// Issue creates a signed token for the user.
func (m *TokenManager) Issue(user domain.User) (string, error) {
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "msgboard",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.key)
}

// Identify parses and validates a token string and returns the identity
// it carries.
func (m *TokenManager) Identify(tokenString string) (domain.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.key, nil
	})
	if err != nil {
		return domain.Identity{}, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return domain.Identity{ID: claims.UserID, Username: claims.Username}, nil
	}
	return domain.Identity{}, jwt.ErrSignatureInvalid
}
