package clipboard

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"
)

// ErrUnavailable is returned when no clipboard mechanism is usable on this host.
var ErrUnavailable = errors.New("clipboard unavailable")

// Writer writes text to a clipboard.
type Writer interface {
	WriteText(ctx context.Context, text string) error
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(ctx context.Context, text string) error

func (f WriterFunc) WriteText(ctx context.Context, text string) error {
	return f(ctx, text)
}

// System writes through the host clipboard utilities (pbcopy, xclip, xsel, wl-copy, Windows API).
type System struct{}

// Available reports whether a host clipboard utility was found.
func (System) Available() bool {
	return !clipboard.Unsupported
}

func (s System) WriteText(_ context.Context, text string) error {
	if !s.Available() {
		return ErrUnavailable
	}

	err := clipboard.WriteAll(text)
	if err != nil {
		return fmt.Errorf("write system clipboard: %w", err)
	}
	return nil
}

// OSC52 asks the attached terminal to set its clipboard with an OSC 52 escape sequence.
// It works over SSH where no host clipboard exists.
type OSC52 struct {
	mu  sync.Mutex
	out io.Writer
}

// NewOSC52 writes escape sequences to out, typically the controlling terminal.
func NewOSC52(out io.Writer) *OSC52 {
	return &OSC52{out: out}
}

func (o *OSC52) WriteText(_ context.Context, text string) error {
	if o == nil || o.out == nil {
		return ErrUnavailable
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	seq := "\x1b]52;c;" + base64.StdEncoding.EncodeToString([]byte(text)) + "\a"
	_, err := io.WriteString(o.out, seq)
	if err != nil {
		return fmt.Errorf("write osc52 sequence: %w", err)
	}
	return nil
}

// Fallback tries the primary writer and falls back to the secondary one on failure.
type Fallback struct {
	primary   Writer
	secondary Writer
	logger    *zap.Logger
}

// New returns a writer preferring primary. Either may be nil; with both nil every write fails.
func New(primary, secondary Writer, logger *zap.Logger) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

func (f *Fallback) WriteText(ctx context.Context, text string) error {
	if f.primary == nil && f.secondary == nil {
		return ErrUnavailable
	}

	var primaryErr error
	if f.primary != nil {
		primaryErr = f.primary.WriteText(ctx, text)
		if primaryErr == nil {
			return nil
		}
		f.logger.Debug("clipboard-primary-failed", zap.Error(primaryErr))
	}

	if f.secondary == nil {
		return primaryErr
	}

	err := f.secondary.WriteText(ctx, text)
	if err != nil {
		return errors.Join(primaryErr, err)
	}
	return nil
}
