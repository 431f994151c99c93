// Package media keeps generated media assets addressable by reference.
package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mindchain/mindmate/backend/internal/model/speech"
)

// RefPrefix is the URL path under which assets are served.
const RefPrefix = "/api/media/"

var ErrNotFound = errors.New("media asset not found")

// Asset is one stored media blob.
type Asset struct {
	ID          string    `json:"id"`
	ContentType string    `json:"contentType"`
	Data        []byte    `json:"data"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store persists assets.
type Store interface {
	Put(ctx context.Context, asset Asset) error
	Get(ctx context.Context, id string) (Asset, error)
	// Purge deletes assets created before the cutoff and reports how many.
	Purge(ctx context.Context, before time.Time) (int, error)
	Close() error
}

// Ref returns the reference clients use to fetch an asset.
func Ref(id string) string {
	return RefPrefix + id
}

// IDFromRef extracts the asset id from a reference.
func IDFromRef(ref string) (string, bool) {
	id, ok := strings.CutPrefix(ref, RefPrefix)
	return id, ok && id != ""
}

// Library turns synthesized payloads into stored assets.
type Library struct {
	store Store
	now   func() time.Time
}

// NewLibrary wraps store.
func NewLibrary(store Store) *Library {
	return &Library{store: store, now: time.Now}
}

// SaveAudio decodes and stores a base64 audio payload, returning its reference.
func (l *Library) SaveAudio(ctx context.Context, audio speech.Audio) (string, error) {
	data, err := audio.Decode()
	if err != nil {
		return "", fmt.Errorf("decode audio: %w", err)
	}
	if len(data) == 0 {
		return "", errors.New("empty audio payload")
	}

	asset := Asset{
		ID:          uuid.NewString(),
		ContentType: audio.MIMEType(),
		Data:        data,
		CreatedAt:   l.now().UTC(),
	}
	if err := l.store.Put(ctx, asset); err != nil {
		return "", fmt.Errorf("store audio: %w", err)
	}
	return Ref(asset.ID), nil
}
