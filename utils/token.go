package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/meinhoongagan/hospital-appointments/models"
)

// TokenPair is returned by login and refresh.
type TokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// TokenIssuer signs access and refresh tokens with one HMAC secret.
type TokenIssuer struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

func (t TokenIssuer) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// Issue signs an access token carrying id, role and ref, plus a refresh
// token carrying the same identity.
func (t TokenIssuer) Issue(user *models.User, ref uint) (TokenPair, error) {
	access, err := t.sign(user.ID, user.Email, user.Role, ref, "access", t.AccessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := t.sign(user.ID, user.Email, user.Role, ref, "refresh", t.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Token: access, RefreshToken: refresh}, nil
}

// Refresh validates a refresh token and returns a new access token for the
// same identity.
func (t TokenIssuer) Refresh(refreshToken string) (string, error) {
	token, err := jwt.Parse(refreshToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.Secret, nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid refresh token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid refresh token")
	}
	if typ, _ := claims["typ"].(string); typ != "refresh" {
		return "", errors.New("not a refresh token")
	}

	id, _ := claims["id"].(float64)
	ref, _ := claims["ref"].(float64)
	email, _ := claims["email"].(string)
	roleName, _ := claims["role"].(string)
	role, ok := models.ParseRole(roleName)
	if !ok {
		return "", errors.New("invalid role in refresh token")
	}
	return t.sign(uint(id), email, role, uint(ref), "access", t.AccessTTL)
}

func (t TokenIssuer) sign(id uint, email string, role models.Role, ref uint, typ string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"id":    id,
		"email": email,
		"role":  role.String(),
		"ref":   ref,
		"typ":   typ,
		"exp":   t.now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.Secret)
}
