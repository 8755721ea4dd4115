package domain

type MemberInfo struct {
	Id    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image,omitempty"`
}

type PresenceMember struct {
	Id   string     `json:"id"`
	Info MemberInfo `json:"info"`
}

// CursorEvent is ephemeral telemetry: never persisted, last value wins
// per user at the receiver.
type CursorEvent struct {
	UserId    string  `json:"userId"`
	UserName  string  `json:"userName"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp int64   `json:"timestamp"`
}
