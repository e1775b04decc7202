package tui

import (
	"context"
	"time"

	charmLog "github.com/charmbracelet/log"

	"github.com/hylla/insync/internal/editor"
)

// Subscriber streams list snapshots pushed by other writers.
type Subscriber interface {
	Subscribe(ctx context.Context, listID string) (<-chan editor.Outline, error)
}

type Option func(*Model)

// WithPolicy sets the key, swipe and timeout rules.
func WithPolicy(policy editor.Policy) Option {
	return func(m *Model) {
		m.policy = policy
		m.swipe = editor.NewSwipe(policy.SwipeThreshold)
	}
}

func WithKeyConfig(cfg KeyConfig) Option {
	return func(m *Model) {
		m.keys.applyConfig(cfg)
	}
}

// WithSaveDebounce sets the idle time before an edited item is saved. Zero saves on every edit.
func WithSaveDebounce(d time.Duration) Option {
	return func(m *Model) {
		if d >= 0 {
			m.saveDebounce = d
		}
	}
}

// WithMarkdown renders unfocused items as markdown.
func WithMarkdown(enabled bool) Option {
	return func(m *Model) {
		m.markdown = enabled
	}
}

// WithMaxItemRows caps the auto-sized editor height. Zero means no cap.
func WithMaxItemRows(rows int) Option {
	return func(m *Model) {
		if rows >= 0 {
			m.maxRows = rows
		}
	}
}

// WithFade sets the frame count and frame interval of the swipe-delete fade.
func WithFade(frames int, interval time.Duration) Option {
	return func(m *Model) {
		if frames >= 0 {
			m.fadeFrames = frames
		}
		if interval > 0 {
			m.fadeInterval = interval
		}
	}
}

func WithLive(live Subscriber) Option {
	return func(m *Model) {
		m.live = live
	}
}

func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}

func WithLogger(logger *charmLog.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithContext bounds remote calls and live subscriptions.
func WithContext(ctx context.Context) Option {
	return func(m *Model) {
		if ctx != nil {
			m.ctx = ctx
		}
	}
}
