package contact

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry keeps one Controller per rendered form, keyed by a uuid the
// browser echoes back in a hidden field.
type Registry struct {
	relay Relay
	opts  Options
	ttl   time.Duration

	mu    sync.Mutex
	forms map[string]*Controller
}

func NewRegistry(r Relay, opts Options, ttl time.Duration) *Registry {
	return &Registry{
		relay: r,
		opts:  opts,
		ttl:   ttl,
		forms: make(map[string]*Controller),
	}
}

// New registers a fresh form instance.
func (r *Registry) New() (string, *Controller) {
	id := uuid.NewString()
	c := NewController(r.relay, r.opts)

	r.mu.Lock()
	r.forms[id] = c
	r.mu.Unlock()
	return id, c
}

// Get returns the controller for id. Malformed ids get a new instance, and
// unknown well-formed ids are adopted so a form survives a server restart.
func (r *Registry) Get(id string) (string, *Controller) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return r.New()
	}
	id = parsed.String()

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.forms[id]; ok {
		return id, c
	}
	c := NewController(r.relay, r.opts)
	r.forms[id] = c
	return id, c
}

// Peek returns the view of the form with id without registering anything.
// Unknown ids render as a fresh idle form; malformed ids get a new id.
func (r *Registry) Peek(id string) (string, View) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		id = uuid.NewString()
	} else {
		id = parsed.String()
	}

	r.mu.Lock()
	c, ok := r.forms[id]
	r.mu.Unlock()
	if ok {
		return id, c.View()
	}
	return id, NewController(r.relay, r.opts).View()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.forms)
}

// Sweep drops idle instances unused for longer than the ttl and returns how
// many were removed. Instances that are sending are kept.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, c := range r.forms {
		last, idle := c.idleSince()
		if idle && now.Sub(last) > r.ttl {
			delete(r.forms, id)
			removed++
		}
	}
	return removed
}

// Run sweeps on every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := r.Sweep(now); n > 0 {
				r.opts.withDefaults().Logger.Debug("expired contact forms", "count", n)
			}
		}
	}
}
