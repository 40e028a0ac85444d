package bridge

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/natagapova/rl-sumo/simulator"
)

type serverRequest struct {
	Endpoint string `msgpack:"endpoint"`
	Params   struct {
		Junction string `msgpack:"junction"`
		Phase    int    `msgpack:"phase"`
	} `msgpack:"params"`
}

// fakeBridge answers requests on conn until the connection is closed,
// recording every request it sees
func fakeBridge(t *testing.T, conn net.Conn, seen chan<- serverRequest) {
	defer close(seen)
	for {
		frame, err := readFrame(conn)
		if err != nil {
			return
		}
		var req serverRequest
		if err := msgpack.Unmarshal(frame, &req); err != nil {
			t.Errorf("could not decode request: %v", err)
			return
		}
		seen <- req

		var resp response
		switch req.Endpoint {
		case endpointTrafficLights:
			resp.Result, _ = msgpack.Marshal(trafficLightsResult{
				IDs: []string{"J1", "J2"},
			})
		case endpointJunction:
			if req.Params.Junction != "J1" {
				resp.Error = "no such junction"
				break
			}
			resp.Result, _ = msgpack.Marshal(simulator.Junction{
				ID:        "J1",
				Phase:     1,
				NumPhases: 4,
				Lanes: []simulator.Lane{
					{ID: "L1", Length: 100, MaxSpeed: 13.9, Vehicles: 3},
				},
			})
		case endpointStatus:
			resp.Result, _ = msgpack.Marshal(simulator.Status{
				Time:     12,
				Expected: 7,
			})
		}

		payload, err := msgpack.Marshal(resp)
		if err != nil {
			t.Errorf("could not encode response: %v", err)
			return
		}
		if err := writeFrame(conn, payload); err != nil {
			return
		}
	}
}

func newTestClient(t *testing.T) (*Client, <-chan serverRequest) {
	clientConn, serverConn := net.Pipe()
	seen := make(chan serverRequest, 64)
	go fakeBridge(t, serverConn, seen)

	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewClient(clientConn, log), seen
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("traffic")
	if err := writeFrame(&buf, payload); err != nil {
		t.Fatal(err)
	}

	if buf.Len() != 4+len(payload) {
		t.Errorf("frame length: want(%v) have(%v)", 4+len(payload), buf.Len())
	}
	if got := buf.Bytes()[3]; got != byte(len(payload)) {
		t.Errorf("length header is not big-endian: last byte %v", got)
	}

	out, err := readFrame(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, payload) {
		t.Errorf("payload: want(%q) have(%q)", payload, out)
	}
}

func TestClientCalls(t *testing.T) {
	client, seen := newTestClient(t)
	ctx := context.Background()

	ids, err := client.TrafficLights(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "J1" || ids[1] != "J2" {
		t.Errorf("traffic lights: have(%v)", ids)
	}
	<-seen

	if err := client.SetPhase(ctx, "J2", 3); err != nil {
		t.Fatal(err)
	}
	req := <-seen
	if req.Endpoint != endpointSetPhase || req.Params.Junction != "J2" ||
		req.Params.Phase != 3 {
		t.Errorf("set phase request: have(%+v)", req)
	}

	j, err := client.Junction(ctx, "J1")
	if err != nil {
		t.Fatal(err)
	}
	<-seen
	if j.NumPhases != 4 || len(j.Lanes) != 1 || j.Lanes[0].Vehicles != 3 {
		t.Errorf("junction decoded incorrectly: %+v", j)
	}

	status, err := client.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	<-seen
	if status.Expected != 7 || status.Time != 12 {
		t.Errorf("status decoded incorrectly: %+v", status)
	}
}

func TestClientRemoteError(t *testing.T) {
	client, seen := newTestClient(t)

	_, err := client.Junction(context.Background(), "missing")
	<-seen
	if !errors.Is(err, simulator.ErrUnknownJunction) {
		t.Errorf("want unknown junction error, have(%v)", err)
	}
}

func TestClientClose(t *testing.T) {
	client, seen := newTestClient(t)

	if err := client.Close(); err != nil {
		t.Fatal(err)
	}
	req := <-seen
	if req.Endpoint != endpointStop {
		t.Errorf("close should send stop: have(%v)", req.Endpoint)
	}

	if err := client.Step(context.Background()); !errors.Is(err, net.ErrClosed) {
		t.Errorf("call after close: want(%v) have(%v)", net.ErrClosed, err)
	}
}

func TestClientCancelledContext(t *testing.T) {
	client, _ := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.Step(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("want(%v) have(%v)", context.Canceled, err)
	}
}

func TestClientCallTimeout(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer serverConn.Close()

	log := logrus.New()
	log.SetOutput(io.Discard)
	client := NewClient(clientConn, log)
	client.SetCallTimeout(20 * time.Millisecond)

	// Nothing reads from serverConn, so the request never completes
	err := client.Step(context.Background())
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Errorf("want a timeout error, have(%v)", err)
	}
}
