package bot

import (
	"fmt"
	"sync"
)

// Mode selects how a pre-screening session is run.
type Mode string

const (
	// ModeLocal runs the on-device prompt/listen dialogue.
	ModeLocal Mode = "local"
	// ModeForwarding hands the call off instead of engaging audio resources.
	ModeForwarding Mode = "forwarding"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeLocal, ModeForwarding:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown bot mode %q", s)
	}
}

// ModeCell is a thread-safe, runtime-mutable mode holder. The orchestrator
// reads it on each invocation rather than latching a value per session, so a
// mode change applies to the next session immediately.
type ModeCell struct {
	mu   sync.RWMutex
	mode Mode
}

func NewModeCell(m Mode) *ModeCell {
	return &ModeCell{mode: m}
}

func (c *ModeCell) Get() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

func (c *ModeCell) Set(m Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = m
}
