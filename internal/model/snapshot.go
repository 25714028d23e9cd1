package model

// Snapshot is everything stored for one user.
type Snapshot struct {
	Templates   []Template
	Logs        []Log
	ChatHistory []ChatMessage
}
