package client

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/docfs/internal/infrastructure/logging"
)

// ErrCircuitOpen is returned without contacting the server while the
// circuit is open.
var ErrCircuitOpen = errors.New("circuit open: server unavailable")

type circuitState int

const (
	circuitClosed circuitState = iota
	circuitHalfOpen
	circuitOpen
)

func (s circuitState) String() string {
	switch s {
	case circuitClosed:
		return "closed"
	case circuitHalfOpen:
		return "half-open"
	case circuitOpen:
		return "open"
	default:
		return "unknown"
	}
}

// circuit stops calling a server that keeps failing after retries.
//
// After threshold consecutive unavailability failures it opens for cooldown,
// then lets a single trial request through. A successful trial closes it again.
type circuit struct {
	threshold int
	cooldown  time.Duration
	logger    *logging.Logger
	now       func() time.Time

	mu       sync.Mutex
	state    circuitState
	failures int
	openedAt time.Time
	trialing bool
}

func newCircuit(threshold int, cooldown time.Duration, logger *logging.Logger) *circuit {
	return &circuit{
		threshold: threshold,
		cooldown:  cooldown,
		logger:    logger,
		now:       time.Now,
	}
}

// allow reports whether a request may go out. A nil circuit always allows.
func (c *circuit) allow() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case circuitOpen:
		if c.now().Sub(c.openedAt) < c.cooldown {
			return ErrCircuitOpen
		}
		c.transition(circuitHalfOpen)
		c.trialing = true
		return nil
	case circuitHalfOpen:
		if c.trialing {
			return ErrCircuitOpen
		}
		c.trialing = true
	}
	return nil
}

// record feeds the outcome of a request that allow let through.
func (c *circuit) record(unavailable bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.trialing = false
	if !unavailable {
		c.failures = 0
		if c.state != circuitClosed {
			c.transition(circuitClosed)
		}
		return
	}

	c.failures++
	if c.state == circuitHalfOpen || c.failures >= c.threshold {
		c.openedAt = c.now()
		c.transition(circuitOpen)
	}
}

// release gives back an allowed slot without judging the server, as when
// the caller cancels its own request.
func (c *circuit) release() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trialing = false
}

func (c *circuit) current() circuitState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *circuit) transition(to circuitState) {
	if c.state == to {
		return
	}
	c.logger.Warn("Circuit state changed",
		zap.Stringer("from", c.state),
		zap.Stringer("to", to),
		zap.Int("failures", c.failures))
	c.state = to
	if to == circuitClosed {
		c.failures = 0
	}
}

// unavailable classifies an exchange for the circuit. A 500 is a filesystem
// fault reported by a live server and does not count.
func unavailable(status int, err error) bool {
	if err != nil {
		return true
	}
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
