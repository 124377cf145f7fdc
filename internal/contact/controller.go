// Package contact owns the contact-form submission lifecycle: validation,
// the Idle/Sending guard, delegation to an e-mail relay and the visible
// outcome.
package contact

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SahilBhatkande/portfolio/internal/relay"
)

// Relay is the e-mail collaborator. Any returned error counts as a failure.
type Relay interface {
	Send(ctx context.Context, p relay.Payload) error
}

type State int

const (
	StateIdle State = iota
	StateSending
)

func (s State) String() string {
	if s == StateSending {
		return "sending"
	}
	return "idle"
}

type Outcome int

const (
	OutcomeRejected Outcome = iota
	OutcomeBusy
	OutcomeSucceeded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeBusy:
		return "busy"
	case OutcomeSucceeded:
		return "sent"
	case OutcomeFailed:
		return "failed"
	default:
		return "rejected"
	}
}

type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyFailure NotificationKind = "failure"
)

type Notification struct {
	Kind     NotificationKind
	Text     string
	Fallback string // direct-contact address, failures only
}

// Options are the static parts of every submission.
type Options struct {
	ToName          string
	FallbackAddress string
	IdleLabel       string
	SendingLabel    string
	SuccessText     string
	FailureText     string
	// Timeout bounds one relay call. Zero means wait for the relay indefinitely.
	Timeout time.Duration
	Logger  *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.IdleLabel == "" {
		o.IdleLabel = "Send Message"
	}
	if o.SendingLabel == "" {
		o.SendingLabel = "Sending..."
	}
	if o.SuccessText == "" {
		o.SuccessText = "Message sent successfully!"
	}
	if o.FailureText == "" {
		o.FailureText = "Failed to send message. Please try again."
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// View is what the presentation layer renders.
type View struct {
	Fields  Request
	State   State
	Label   string
	Enabled bool
	Notice  *Notification
}

// Controller mediates the submissions of a single form instance.
type Controller struct {
	relay Relay
	opts  Options

	mu       sync.Mutex
	state    State
	fields   Request
	notice   *Notification
	lastUsed time.Time
}

func NewController(r Relay, opts Options) *Controller {
	return &Controller{
		relay:    r,
		opts:     opts.withDefaults(),
		lastUsed: time.Now(),
	}
}

// View returns a snapshot of the form state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	v := View{Fields: c.fields, State: c.state, Label: c.opts.IdleLabel, Enabled: true}
	if c.state == StateSending {
		v.Label = c.opts.SendingLabel
		v.Enabled = false
	}
	if c.notice != nil {
		n := *c.notice
		v.Notice = &n
	}
	return v
}

// Submit runs one submission attempt and blocks until the relay resolves.
func (c *Controller) Submit(ctx context.Context, req Request) (Outcome, error) {
	if err := req.Validate(); err != nil {
		return OutcomeRejected, err
	}

	c.mu.Lock()
	c.lastUsed = time.Now()
	if c.state == StateSending {
		c.mu.Unlock()
		return OutcomeBusy, ErrBusy
	}
	c.state = StateSending
	c.fields = req
	c.notice = nil
	c.mu.Unlock()

	var sendErr error
	defer func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sendErr == nil {
			c.fields = Request{}
			c.notice = &Notification{Kind: NotifySuccess, Text: c.opts.SuccessText}
		} else {
			c.notice = &Notification{Kind: NotifyFailure, Text: c.opts.FailureText, Fallback: c.opts.FallbackAddress}
		}
		c.state = StateIdle
		c.lastUsed = time.Now()
	}()

	sendErr = c.send(ctx, relay.Payload{
		FromName:  req.Name,
		FromEmail: req.Email,
		Message:   req.Message,
		ToName:    c.opts.ToName,
		ReplyTo:   req.Email,
	})
	if sendErr != nil {
		c.opts.Logger.Warn("contact relay failed", "error", sendErr)
		return OutcomeFailed, fmt.Errorf("%w: %w", ErrRelayFailure, sendErr)
	}

	c.opts.Logger.Info("contact message relayed")
	return OutcomeSucceeded, nil
}

func (c *Controller) send(ctx context.Context, p relay.Payload) error {
	if c.opts.Timeout <= 0 {
		return c.sendOnce(ctx, p)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	// The relay may ignore ctx; the deadline still has to release the form.
	done := make(chan error, 1)
	go func() { done <- c.sendOnce(ctx, p) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("relay timed out after %s: %w", c.opts.Timeout, ctx.Err())
	}
}

// sendOnce turns a relay panic into an error so cleanup still runs.
func (c *Controller) sendOnce(ctx context.Context, p relay.Payload) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("relay panicked: %v", r)
		}
	}()
	return c.relay.Send(ctx, p)
}

func (c *Controller) idleSince() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUsed, c.state == StateIdle
}
