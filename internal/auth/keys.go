package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const derivedKeySize = 32

// Keys はマスターシークレットから導出した用途別の鍵です。
type Keys struct {
	Token  []byte // トークン署名用 (HS256)
	Cookie []byte // セッションCookie署名用
}

// DeriveKeys は HKDF-SHA256 で secret から用途別の鍵を導出します。
func DeriveKeys(secret []byte) (Keys, error) {
	if len(secret) == 0 {
		return Keys{}, errors.New("secret is empty")
	}
	token, err := deriveKey(secret, "bookshelf token signing")
	if err != nil {
		return Keys{}, err
	}
	cookie, err := deriveKey(secret, "bookshelf session cookie")
	if err != nil {
		return Keys{}, err
	}
	return Keys{Token: token, Cookie: cookie}, nil
}

// RandomSecret は開発用の使い捨てシークレットを生成します。
func RandomSecret() ([]byte, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func deriveKey(secret []byte, info string) ([]byte, error) {
	key := make([]byte, derivedKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("failed to derive %s key: %w", info, err)
	}
	return key, nil
}
