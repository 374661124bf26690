package countdown

import (
	"context"
	"fmt"
	"time"
)

// LabelPrefix precedes the formatted countdown on section cards.
const LabelPrefix = "Осталось "

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour
)

type State int

const (
	Counting State = iota
	Expired
)

func (s State) String() string {
	if s == Counting {
		return "counting"
	}
	return "expired"
}

// Format renders remaining seconds. ok is false when nothing should be shown.
func Format(remaining int64) (text string, ok bool) {
	if remaining <= 0 {
		return "", false
	}
	days := remaining / secondsPerDay
	hours := (remaining % secondsPerDay) / secondsPerHour
	minutes := (remaining % secondsPerHour) / secondsPerMinute
	secs := remaining % secondsPerMinute

	switch {
	case days >= 1:
		return fmt.Sprintf("%d %s", days, DayWord(days)), true
	case hours >= 1:
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs), true
	default:
		return fmt.Sprintf("%d:%02d", minutes, secs), true
	}
}

// DayWord picks the Russian word for "day". It is a fixed three-bucket rule
// (1, 2-4, everything else) and deliberately ignores the 11-14 and 21+ forms.
func DayWord(days int64) string {
	switch {
	case days == 1:
		return "день"
	case days >= 2 && days <= 4:
		return "дня"
	default:
		return "дней"
	}
}

// Label is Format with LabelPrefix.
func Label(remaining int64) (string, bool) {
	text, ok := Format(remaining)
	if !ok {
		return "", false
	}
	return LabelPrefix + text, true
}

// Frame is one rendered step of a countdown.
type Frame struct {
	Remaining int64  `json:"remaining"`
	Text      string `json:"text,omitempty"`
	Visible   bool   `json:"visible"`
}

// Countdown decays a server-supplied "seconds remaining at load" value.
// The initial value is read once; there is no way back from Expired.
// A Countdown is not safe for concurrent use.
type Countdown struct {
	initial int64
	ticks   int64
}

func New(initial int64) *Countdown {
	return &Countdown{initial: initial}
}

func (c *Countdown) Remaining() int64 {
	return max(0, c.initial-c.ticks)
}

func (c *Countdown) State() State {
	if c.Remaining() > 0 {
		return Counting
	}
	return Expired
}

// Tick advances one second and returns the new remaining value.
func (c *Countdown) Tick() int64 {
	if c.State() == Counting {
		c.ticks++
	}
	return c.Remaining()
}

func (c *Countdown) Frame() Frame {
	remaining := c.Remaining()
	text, ok := Format(remaining)
	return Frame{Remaining: remaining, Text: text, Visible: ok}
}

// Run emits the current frame and then one frame per value received on ticks.
// It returns nil once the countdown expires, ctx.Err() when ctx is cancelled,
// or the first error returned by emit.
func (c *Countdown) Run(ctx context.Context, ticks <-chan time.Time, emit func(Frame) error) error {
	if err := emit(c.Frame()); err != nil {
		return err
	}
	for c.State() == Counting {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticks:
			c.Tick()
			if err := emit(c.Frame()); err != nil {
				return err
			}
		}
	}
	return nil
}

// RunEvery drives Run from a time.Ticker that is stopped when Run returns.
func (c *Countdown) RunEvery(ctx context.Context, interval time.Duration, emit func(Frame) error) error {
	if c.State() == Expired {
		return emit(c.Frame())
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	return c.Run(ctx, ticker.C, emit)
}
