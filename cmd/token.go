package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/urfave/cli/v2"
)

var errNoJWTSecret = errors.New("http.jwt_secret is not configured")

// TokenCommand prints a bearer token accepted by the HTTP API.
func TokenCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	token, err := signToken(cfg.HTTP.JWTSecret, c.String("subject"), c.Duration("ttl"), time.Now())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, token)
	return err
}

func signToken(secret, subject string, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", errNoJWTSecret
	}
	claims := jwt.RegisteredClaims{
		Subject:  subject,
		Issuer:   "harmony-helper",
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
