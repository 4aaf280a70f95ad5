package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims はトークンに埋め込まれた本人情報です。
type Claims struct {
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenIssuer は有効期限付きの署名トークンを発行・検証します。
// 検証は署名と有効期限のみで決まり、サーバー側の失効リストは持ちません。
type TokenIssuer interface {
	Issue(username string, now time.Time) (token string, exp time.Time, err error)
	Verify(token string, now time.Time) (Claims, error)
}

type jwtIssuer struct {
	key []byte
	ttl time.Duration
}

// NewJWTIssuer は HS256 で署名する TokenIssuer を作成します。
func NewJWTIssuer(key []byte, ttl time.Duration) (TokenIssuer, error) {
	if len(key) == 0 {
		return nil, errors.New("token signing key is empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive: %s", ttl)
	}
	return &jwtIssuer{key: key, ttl: ttl}, nil
}

func (j *jwtIssuer) Issue(username string, now time.Time) (string, time.Time, error) {
	exp := now.Add(j.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, exp, nil
}

func (j *jwtIssuer) Verify(token string, now time.Time) (Claims, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return j.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	out := Claims{Username: claims.Subject, ExpiresAt: claims.ExpiresAt.Time}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}
