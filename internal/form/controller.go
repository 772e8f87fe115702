// Package form implements the calculator form: two operand fields, an
// operator, and the asynchronous round trip to a calculator.Calculator.
//
// Every edit bumps a generation counter. A call carries the generation it was
// issued under and its response is applied only if the counter has not moved
// since, so a slow stale response can never replace a newer one.
package form

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/observability"
)

// DefaultDebounce is the quiet period after the last edit before a
// calculation is issued.
const DefaultDebounce = 300 * time.Millisecond

type Options struct {
	// Debounce delays calculation after each edit. Zero disables automatic
	// calculation; callers then use Submit.
	Debounce time.Duration
	// Timeout bounds each remote call. Zero means no bound.
	Timeout time.Duration
	// Clock drives the debounce timer. Defaults to the wall clock.
	Clock clock.Clock
	// Logger defaults to observability.Logger.
	Logger *zap.Logger
	// OnChange is called with the latest View after every state change.
	// Calls are serialized. It must not call back into the mutating
	// methods of the Controller.
	OnChange func(View)
}

// Controller owns the form state. It is safe for concurrent use.
type Controller struct {
	client   calculator.Calculator
	debounce time.Duration
	timeout  time.Duration
	clock    clock.Clock
	logger   *zap.Logger
	onChange func(View)

	ctx    context.Context
	cancel context.CancelFunc

	notifyMu sync.Mutex

	mu         sync.Mutex
	first      string
	second     string
	op         calculator.Operator
	phase      Phase
	outcome    *outcome
	generation uint64
	timer      *clock.Timer
	cancelCall context.CancelFunc
	closed     bool
}

// New creates a Controller with empty operands and the add operator.
func New(client calculator.Calculator, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = observability.Logger
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		client:   client,
		debounce: opts.Debounce,
		timeout:  opts.Timeout,
		clock:    opts.Clock,
		logger:   opts.Logger,
		onChange: opts.OnChange,
		ctx:      ctx,
		cancel:   cancel,
		op:       calculator.OpAdd,
	}
}

// SetFirst replaces the first operand's text.
func (c *Controller) SetFirst(s string) {
	c.edit(func() { c.first = s })
}

// SetSecond replaces the second operand's text.
func (c *Controller) SetSecond(s string) {
	c.edit(func() { c.second = s })
}

// SetOperator selects op. Invalid operators are ignored.
func (c *Controller) SetOperator(op calculator.Operator) {
	if !op.Valid() {
		return
	}
	c.edit(func() { c.op = op })
}

// Submit calculates immediately, cancelling any armed debounce timer.
func (c *Controller) Submit() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.issue(c.supersede())
	c.mu.Unlock()
	c.notify()
}

// Clear resets operands, operator and result from any state.
func (c *Controller) Clear() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.supersede()
	c.first, c.second = "", ""
	c.op = calculator.OpAdd
	c.phase = PhaseEmpty
	c.mu.Unlock()
	c.notify()
}

// Close stops the timer and abandons any outstanding call. Further method
// calls are no-ops and late responses are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.supersede()
	c.phase = PhaseEmpty
	c.mu.Unlock()
	c.cancel()
}

// View returns a snapshot of the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		First:    c.first,
		Second:   c.second,
		Operator: c.op,
		Phase:    c.phase,
		Loading:  c.phase == PhaseInFlight,
		Text:     PromptText,
	}
	switch {
	case v.Loading:
		v.Text = LoadingText
	case c.outcome != nil:
		v.Text = c.outcome.text()
	}
	return v
}

func (c *Controller) edit(apply func()) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	apply()
	gen := c.supersede()
	if c.debounce > 0 {
		c.phase = PhasePending
		c.timer = c.clock.AfterFunc(c.debounce, func() { c.fire(gen) })
	} else {
		c.phase = PhaseEmpty
	}
	c.mu.Unlock()
	c.notify()
}

// supersede invalidates everything belonging to the current generation:
// the armed timer, the outstanding call and the displayed outcome.
// c.mu must be held.
func (c *Controller) supersede() uint64 {
	c.generation++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancelCall != nil {
		c.cancelCall()
		c.cancelCall = nil
	}
	c.outcome = nil
	return c.generation
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.issue(gen)
	c.mu.Unlock()
	c.notify()
}

// issue validates the operands and starts the remote call for gen.
// c.mu must be held.
func (c *Controller) issue(gen uint64) {
	a, okA := ParseOperand(c.first)
	b, okB := ParseOperand(c.second)
	if !okA || !okB {
		c.phase = PhaseEmpty
		c.outcome = nil
		return
	}

	snap := outcome{
		first:  strings.TrimSpace(c.first),
		second: strings.TrimSpace(c.second),
		op:     c.op,
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(c.ctx, c.timeout)
	} else {
		ctx, cancel = context.WithCancel(c.ctx)
	}
	ctx = observability.ContextWithRequestID(ctx, observability.NewRequestID())

	c.cancelCall = cancel
	c.phase = PhaseInFlight

	c.logger.Debug("calculation issued",
		zap.String("operation", snap.op.String()),
		zap.Float64("a", a),
		zap.Float64("b", b),
		zap.Uint64("generation", gen),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
	)

	go c.call(ctx, cancel, gen, snap, a, b)
}

func (c *Controller) call(ctx context.Context, cancel context.CancelFunc, gen uint64, snap outcome, a, b float64) {
	defer cancel()

	resp, err := calculator.Invoke(ctx, c.client, snap.op, a, b)

	c.mu.Lock()
	if c.closed || gen != c.generation {
		current := c.generation
		c.mu.Unlock()
		c.logger.Debug("discarding stale calculation result",
			zap.Uint64("generation", gen),
			zap.Uint64("current_generation", current),
		)
		return
	}

	c.cancelCall = nil
	snap.resp = resp
	switch {
	case err != nil:
		snap.transportErr = true
		c.phase = PhaseTransportError
		c.logger.Warn("calculation failed",
			zap.String("operation", snap.op.String()),
			zap.Error(err),
			zap.String("request_id", observability.RequestIDFromContext(ctx)),
		)
	case resp.Failed():
		c.phase = PhaseFailed
	default:
		c.phase = PhaseSuccess
	}
	c.outcome = &snap
	c.mu.Unlock()

	c.notify()
}

func (c *Controller) notify() {
	if c.onChange == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.onChange(c.View())
}
