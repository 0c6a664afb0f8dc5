package services

import (
	"context"
	"sync"
	"time"

	"github.com/namhsc/tvtl-sub000/domain"
)

// OTPContext is the state carried over from the originating form. Phone,
// password and purpose are required; landing on the OTP step without them
// is a fatal precondition and the user is routed back.
type OTPContext struct {
	Phone    string
	Password string
	Method   domain.OTPMethod
	Purpose  domain.OTPPurpose
}

// OTPChallengeConfig sizes one verification attempt.
type OTPChallengeConfig struct {
	Digits       int
	ResendWindow int
}

// OTPChallenge manages one verification attempt end-to-end: the six digit
// cells, completion detection, and the resend countdown. The completion
// callback fires exactly once per completed code; a failed verification
// re-arms it without clearing the entered digits.
type OTPChallenge struct {
	octx       OTPContext
	sender     domain.OTPSender
	onComplete func(code string)
	window     int

	mu         sync.Mutex
	cells      []rune
	focus      int
	countdown  int
	verified   bool
	submitting bool
	errMsg     string
	closed     bool
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewOTPChallenge creates a challenge for the given context. The countdown
// starts at the full resend window on entry to the screen.
func NewOTPChallenge(octx OTPContext, sender domain.OTPSender, onComplete func(code string), cfg OTPChallengeConfig) (*OTPChallenge, error) {
	if octx.Phone == "" || octx.Password == "" || octx.Purpose == "" {
		return nil, domain.ErrMissingOTPContext
	}
	if octx.Method == "" {
		octx.Method = domain.OTPMethodSMS
	}
	digits := cfg.Digits
	if digits <= 0 {
		digits = 6
	}
	window := cfg.ResendWindow
	if window <= 0 {
		window = 60
	}

	return &OTPChallenge{
		octx:       octx,
		sender:     sender,
		onComplete: onComplete,
		window:     window,
		cells:      make([]rune, digits),
		countdown:  window,
		stop:       make(chan struct{}),
	}, nil
}

// Context returns the carried-over form context.
func (c *OTPChallenge) Context() OTPContext { return c.octx }

// InputDigit handles one keystroke. Non-digit characters are ignored
// without mutating state; a digit fills the focused cell and advances.
func (c *OTPChallenge) InputDigit(r rune) {
	if r < '0' || r > '9' {
		return
	}

	c.mu.Lock()
	if c.closed || c.focus >= len(c.cells) {
		c.mu.Unlock()
		return
	}
	c.cells[c.focus] = r
	c.focus++
	code := c.completeLocked()
	c.mu.Unlock()

	c.fire(code)
}

// Backspace clears the focused cell, or moves back and clears when the
// focused cell is already empty.
func (c *OTPChallenge) Backspace() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.focus < len(c.cells) && c.cells[c.focus] != 0 {
		c.cells[c.focus] = 0
		return
	}
	if c.focus > 0 {
		c.focus--
		c.cells[c.focus] = 0
	}
}

// Paste fills all cells at once from a full-length digit string; anything
// else is ignored.
func (c *OTPChallenge) Paste(s string) {
	runes := []rune(s)
	if len(runes) != len(c.cells) {
		return
	}
	for _, r := range runes {
		if r < '0' || r > '9' {
			return
		}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	copy(c.cells, runes)
	c.focus = len(c.cells)
	code := c.completeLocked()
	c.mu.Unlock()

	c.fire(code)
}

// completeLocked returns the assembled code when all cells are filled and
// the submitting-or-verified guard is clear, arming the guard. Empty string
// means nothing to fire.
func (c *OTPChallenge) completeLocked() string {
	if c.submitting || c.verified {
		return ""
	}
	for _, r := range c.cells {
		if r == 0 {
			return ""
		}
	}
	c.submitting = true
	return string(c.cells)
}

// fire runs the completion callback outside the lock so it can call back
// into SubmitFailed or MarkVerified.
func (c *OTPChallenge) fire(code string) {
	if code != "" && c.onComplete != nil {
		c.onComplete(code)
	}
}

// SubmitFailed re-arms the completion guard after a rejected verification
// and surfaces the server's message. The entered digits are kept so the
// user corrects rather than retypes.
func (c *OTPChallenge) SubmitFailed(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false
	c.errMsg = msg
}

// MarkVerified records a successful server verification. Transitions to
// verified at most once and permanently suppresses further completions.
func (c *OTPChallenge) MarkVerified() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.verified {
		c.verified = true
	}
	c.submitting = false
	c.errMsg = ""
}

// Tick advances the countdown by one second. Monotonically decreasing to
// zero, where resend becomes enabled.
func (c *OTPChallenge) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.countdown > 0 {
		c.countdown--
	}
}

// Start runs the one-second countdown ticker until the challenge is
// closed.
func (c *OTPChallenge) Start() {
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
				c.Tick()
			}
		}
	}()
}

// Close disposes the challenge when the screen unmounts, stopping the
// ticker so no orphaned callbacks remain.
func (c *OTPChallenge) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.stopOnce.Do(func() { close(c.stop) })
}

// CanResend reports whether the countdown has reached zero.
func (c *OTPChallenge) CanResend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.countdown == 0
}

// Resend dispatches a new code. On success the countdown resets to the
// full window and the input cells are cleared.
func (c *OTPChallenge) Resend(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrChallengeClosed
	}
	if c.countdown > 0 {
		c.mu.Unlock()
		return domain.ErrResendThrottled
	}
	c.mu.Unlock()

	if err := c.sender.SendOTP(ctx, domain.SendOTPRequest{Phone: c.octx.Phone, Method: c.octx.Method, Purpose: c.octx.Purpose}); err != nil {
		return err
	}

	c.mu.Lock()
	c.countdown = c.window
	for i := range c.cells {
		c.cells[i] = 0
	}
	c.focus = 0
	c.errMsg = ""
	c.mu.Unlock()
	return nil
}

// Code returns the current buffer contents, digits only.
func (c *OTPChallenge) Code() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]rune, 0, len(c.cells))
	for _, r := range c.cells {
		if r != 0 {
			out = append(out, r)
		}
	}
	return string(out)
}

// Focus returns the index of the focused cell.
func (c *OTPChallenge) Focus() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focus
}

// Countdown returns the seconds remaining before resend is allowed.
func (c *OTPChallenge) Countdown() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.countdown
}

// Verified reports whether the server accepted a code for this challenge.
func (c *OTPChallenge) Verified() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.verified
}

// Error returns the last verification error message.
func (c *OTPChallenge) Error() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}
