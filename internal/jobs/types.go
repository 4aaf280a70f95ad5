// Package jobs はレビュー変更履歴の非同期記録を提供します。
//
// レビューの変更はキュー（Asynq）に投入され、ワーカーが Redis のリストへ追記します。
package jobs

import "time"

// Event はレビューに対する一件の変更記録です。
type Event struct {
	ISBN     string    `json:"isbn"`
	Username string    `json:"username"`
	Action   string    `json:"action"`
	Text     string    `json:"text,omitempty"`
	At       time.Time `json:"at"`
}
