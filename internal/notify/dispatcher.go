package notify

import (
	"context"
	"fmt"
	"time"
)

// Transport delivers payloads for one named channel. Retries and rate
// limiting are the transport's business, not the dispatcher's.
type Transport interface {
	Name() string
	Send(ctx context.Context, p Payload) error
}

// Dispatcher owns the configured transports and delivers dispatches to
// them in order.
type Dispatcher struct {
	transports map[string]Transport
	timeout    time.Duration
}

// NewDispatcher builds a dispatcher over the given transports. timeout,
// when positive, bounds each individual send.
func NewDispatcher(timeout time.Duration, transports ...Transport) *Dispatcher {
	m := make(map[string]Transport, len(transports))
	for _, t := range transports {
		m[t.Name()] = t
	}
	return &Dispatcher{transports: m, timeout: timeout}
}

// Deliver attempts every dispatch and returns one error per failure. A
// failed send never aborts the remaining dispatches.
func (d *Dispatcher) Deliver(ctx context.Context, dispatches []Dispatch) []error {
	var errs []error
	for _, dp := range dispatches {
		t, ok := d.transports[dp.Channel]
		if !ok {
			errs = append(errs, fmt.Errorf("no transport for channel %q", dp.Channel))
			continue
		}
		if err := d.send(ctx, t, dp.Payload); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", dp.Channel, err))
		}
	}
	return errs
}

func (d *Dispatcher) send(ctx context.Context, t Transport, p Payload) error {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	return t.Send(ctx, p)
}
