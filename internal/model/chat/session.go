package chat

import "time"

// Session captures one companion chat view. It lives in memory only.
type Session struct {
	ID        string    `json:"id"`
	PersonaID string    `json:"personaId"`
	Voice     string    `json:"voice"`
	CreatedAt time.Time `json:"createdAt"`
}
