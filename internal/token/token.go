// Package token mints and reads the anonymous session tokens shared by the
// game server and its clients. A token is an HS256 JWT whose subject is the
// user id and whose "name" claim is the display name.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mcoot/cardroom/internal/model"
)

// Issuer is written into every token
const Issuer = "cardroom"

// Claims represents JWT claims
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// User returns the identity carried by the claims
func (c *Claims) User() model.User {
	return model.User{
		ID:          model.UserID(c.Subject),
		DisplayName: c.Name,
	}
}

// Mint signs a token for user valid from now until now+ttl
func Mint(secret []byte, user model.User, now time.Time, ttl time.Duration) (model.Token, error) {
	claims := Claims{
		Name: user.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(user.ID),
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return model.Token(signed), nil
}

// Verify checks the signature and expiry of t and returns the user it carries
func Verify(secret []byte, t model.Token, now func() time.Time) (model.User, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(string(t), &claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		return model.User{}, fmt.Errorf("%w: %w", model.ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return model.User{}, model.ErrInvalidToken
	}
	return claims.User(), nil
}

// Decode reads the identity from t without verifying it.
// Clients use this to learn who they are without a round trip; the server
// still verifies every token it receives.
func Decode(t model.Token) (model.User, error) {
	if t == "" {
		return model.User{}, model.ErrInvalidToken
	}

	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(string(t), &claims); err != nil {
		return model.User{}, fmt.Errorf("%w: %w", model.ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return model.User{}, errors.Join(model.ErrInvalidToken, errors.New("token has no subject"))
	}
	return claims.User(), nil
}
