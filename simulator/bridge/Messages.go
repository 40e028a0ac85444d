package bridge

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Endpoints served by the simulator bridge
const (
	endpointLoad          = "load"
	endpointStep          = "step"
	endpointTrafficLights = "trafficlights"
	endpointSetPhase      = "set_phase"
	endpointJunction      = "junction"
	endpointStatus        = "status"
	endpointStop          = "stop"
)

// request is the envelope of every call sent to the bridge
type request struct {
	Endpoint string                 `msgpack:"endpoint"`
	Params   map[string]interface{} `msgpack:"params,omitempty"`
}

// response is the envelope of every answer from the bridge. Result is
// decoded separately into the endpoint's result type.
type response struct {
	Error  string             `msgpack:"error,omitempty"`
	Result msgpack.RawMessage `msgpack:"result,omitempty"`
}

type trafficLightsResult struct {
	IDs []string `msgpack:"ids"`
}

// RemoteError is an error reported by the bridge itself, as opposed to
// a transport or codec failure
type RemoteError struct {
	Endpoint string
	Message  string
}

func (r *RemoteError) Error() string {
	return fmt.Sprintf("bridge: %v: %v", r.Endpoint, r.Message)
}
