package ai

import (
	"context"
	"errors"

	"github.com/mindchain/mindmate/backend/internal/model/chat"
)

// ErrEmptyResponse is returned when a provider answers without content.
var ErrEmptyResponse = errors.New("empty response from model")

// TextRequest is one text generation call.
type TextRequest struct {
	System  string
	History []chat.Message
	Prompt  string
}

// TextGenerator produces a reply for a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
}

// ImageGenerator returns a URL of an image generated for prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// historyRole maps transcript roles onto chat roles; non-text content is
// passed as its caption.
func historyRole(m chat.Message) (string, bool) {
	switch m.Role {
	case chat.RoleUser:
		return "user", true
	case chat.RoleAssistant:
		return "assistant", true
	}
	return "", false
}
