package voice

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mindchain/mindmate/backend/internal/logger"
	"github.com/mindchain/mindmate/backend/internal/model/speech"
)

// Output is where decoded audio ends up, e.g. the session's event hub.
type Output interface {
	Play(ctx context.Context, audio []byte, format string) error
}

// Player decodes synthesized payloads and plays them without blocking the
// caller. Overlapping playback is allowed.
type Player struct {
	out     Output
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewPlayer returns a Player writing to out. timeout bounds each playback.
func NewPlayer(out Output, timeout time.Duration) *Player {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Player{out: out, timeout: timeout}
}

// Play starts playback of a base64 encoded payload in the background.
// Failures are logged.
func (p *Player) Play(audio speech.Audio) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		data, err := audio.Decode()
		if err != nil {
			slog.Warn("[voice] failed to decode audio payload", logger.Err(err))
			return
		}
		if len(data) == 0 {
			slog.Warn("[voice] empty audio payload")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if err := p.out.Play(ctx, data, audio.Format); err != nil {
			slog.Warn("[voice] playback failed", "format", audio.Format, logger.Err(err))
		}
	}()
}

// Wait blocks until every started playback has finished.
func (p *Player) Wait() {
	p.wg.Wait()
}
