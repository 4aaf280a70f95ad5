package auth

import "errors"

var (
	// ErrMissingCredentials は username か password が空の場合に返されます。
	ErrMissingCredentials = errors.New("username and password are required")
	// ErrInvalidCredentials は資格情報が登録簿と一致しない場合に返されます。
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotLoggedIn はセッションにトークンが紐づいていない場合に返されます。
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrInvalidToken は署名不正・形式不正・期限切れのトークンに対して返されます。
	ErrInvalidToken = errors.New("invalid token")
)
