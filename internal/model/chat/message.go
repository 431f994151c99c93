package chat

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Kind describes which auxiliary payload accompanies a message.
type Kind string

const (
	KindText  Kind = "text"
	KindAudio Kind = "audio"
	KindImage Kind = "image"
)

// Message is one entry of a conversation transcript. Content is always set,
// even for audio and image messages where it acts as caption or transcript.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Kind      Kind      `json:"kind"`
	AudioRef  string    `json:"audioRef,omitempty"`
	ImageRef  string    `json:"imageRef,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Valid reports whether the role is known.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Valid reports whether the kind is known.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindAudio, KindImage:
		return true
	}
	return false
}
