package service

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/avetisov/investline/internal/app/config"
	appErrors "github.com/avetisov/investline/internal/app/errors"
)

type TokenService interface {
	GetUserLogin(tokenString string) (string, error)
	GenerateToken(userLogin string) (string, error)
}

type Claims struct {
	jwt.RegisteredClaims
	UserLogin string
}

type TokenServiceImpl struct {
	secretKey     string
	tokenLifetime time.Duration
}

var loginRegex = regexp.MustCompile(`^[a-zA-Z0-9._\-]{3,64}$`)

func NewTokenService(cfg config.AppConfig) *TokenServiceImpl {
	return &TokenServiceImpl{
		secretKey:     cfg.TokenSecretKey,
		tokenLifetime: time.Duration(cfg.TokenLifetimeSec) * time.Second,
	}
}

func (ts TokenServiceImpl) GetUserLogin(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(ts.secretKey), nil
		})
	if err != nil {
		return "", appErrors.New(err, "failed to parse token")
	}

	if !token.Valid {
		return "", appErrors.New(errors.New("token error"), "token is not valid")
	}

	if !loginRegex.MatchString(claims.UserLogin) {
		return "", appErrors.New(errors.New("token error"), "invalid login in token")
	}

	return claims.UserLogin, nil
}

func (ts TokenServiceImpl) GenerateToken(userLogin string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "investline",
			Subject:   "auth token",
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.tokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserLogin: userLogin,
	})

	tokenString, err := token.SignedString([]byte(ts.secretKey))
	if err != nil {
		return "", err
	}
	return tokenString, nil
}
