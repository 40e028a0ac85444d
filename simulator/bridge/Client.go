// Package bridge implements a simulator.Simulator that talks to an
// external traffic simulator through a socket bridge. Messages are
// msgpack maps framed with a 4-byte big-endian length header.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/natagapova/rl-sumo/simulator"
)

// Client is a simulator.Simulator backed by a bridge connection. Failed
// calls are returned to the caller and never retried.
type Client struct {
	mu     sync.Mutex
	conn   net.Conn
	log    logrus.FieldLogger
	closed bool

	// timeout bounds calls whose context has no deadline; 0 disables it
	timeout time.Duration
}

// Dial connects to a bridge listening on the given network ("unix" or
// "tcp") and address
func Dial(ctx context.Context, network, address string, timeout time.Duration,
	log logrus.FieldLogger) (*Client, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("dial: could not connect to simulator at %v: %w",
			address, err)
	}
	log.WithFields(logrus.Fields{
		"network": network,
		"address": address,
	}).Info("connected to simulator bridge")

	return NewClient(conn, log), nil
}

// NewClient returns a Client that uses an established connection
func NewClient(conn net.Conn, log logrus.FieldLogger) *Client {
	return &Client{conn: conn, log: log}
}

// SetCallTimeout bounds every later call whose context carries no
// deadline of its own. A timeout of 0 disables the bound.
func (c *Client) SetCallTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// call sends a request and decodes the result into out, which may be
// nil for endpoints that return nothing
func (c *Client) call(ctx context.Context, endpoint string,
	params map[string]interface{}, out interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("%v: %w", endpoint, net.ErrClosed)
	}

	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := c.conn.SetDeadline(deadline); err != nil {
			return fmt.Errorf("%v: could not set deadline: %w", endpoint, err)
		}
		defer c.conn.SetDeadline(time.Time{})
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%v: %w", endpoint, err)
	}

	payload, err := msgpack.Marshal(request{Endpoint: endpoint, Params: params})
	if err != nil {
		return fmt.Errorf("%v: could not encode request: %w", endpoint, err)
	}
	if err := writeFrame(c.conn, payload); err != nil {
		return fmt.Errorf("%v: could not send request: %w", endpoint, err)
	}

	frame, err := readFrame(c.conn)
	if err != nil {
		return fmt.Errorf("%v: could not read response: %w", endpoint, err)
	}

	var resp response
	if err := msgpack.Unmarshal(frame, &resp); err != nil {
		return fmt.Errorf("%v: could not decode response: %w", endpoint, err)
	}
	if resp.Error != "" {
		return &RemoteError{Endpoint: endpoint, Message: resp.Error}
	}

	if out == nil {
		return nil
	}
	if len(resp.Result) == 0 {
		return fmt.Errorf("%v: empty result", endpoint)
	}
	if err := msgpack.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("%v: could not decode result: %w", endpoint, err)
	}
	return nil
}

// Load restarts the simulation from its initial configuration
func (c *Client) Load(ctx context.Context) error {
	return c.call(ctx, endpointLoad, nil, nil)
}

// Step advances the simulation by one tick
func (c *Client) Step(ctx context.Context) error {
	return c.call(ctx, endpointStep, nil, nil)
}

// TrafficLights returns the IDs of all signalised junctions
func (c *Client) TrafficLights(ctx context.Context) ([]string, error) {
	var res trafficLightsResult
	if err := c.call(ctx, endpointTrafficLights, nil, &res); err != nil {
		return nil, err
	}
	return res.IDs, nil
}

// SetPhase commands the phase of a junction's traffic light
func (c *Client) SetPhase(ctx context.Context, junction string,
	phase int) error {
	params := map[string]interface{}{
		"junction": junction,
		"phase":    phase,
	}
	return c.call(ctx, endpointSetPhase, params, nil)
}

// Junction observes a single junction
func (c *Client) Junction(ctx context.Context,
	id string) (simulator.Junction, error) {
	var j simulator.Junction
	err := c.call(ctx, endpointJunction, map[string]interface{}{"junction": id},
		&j)
	if err != nil {
		var remote *RemoteError
		if errors.As(err, &remote) {
			return simulator.Junction{}, fmt.Errorf("%w %q: %v",
				simulator.ErrUnknownJunction, id, remote.Message)
		}
		return simulator.Junction{}, err
	}
	return j, nil
}

// Status returns the simulation summary
func (c *Client) Status(ctx context.Context) (simulator.Status, error) {
	var s simulator.Status
	err := c.call(ctx, endpointStatus, nil, &s)
	return s, err
}

// Close asks the bridge to stop the simulation and closes the
// connection
func (c *Client) Close() error {
	stopErr := c.call(context.Background(), endpointStop, nil, nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if stopErr != nil {
		c.log.WithError(stopErr).Warn("simulator bridge did not stop cleanly")
	}
	return nil
}
