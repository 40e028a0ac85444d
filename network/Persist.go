package network

import (
	"encoding/gob"
	"fmt"
	"io"
)

// Encode writes the architecture and weights of net to w
func Encode(w io.Writer, net NeuralNet) error {
	mlp, ok := net.(*multiHeadMLP)
	if !ok {
		return fmt.Errorf("encode: cannot encode network of type %T", net)
	}
	return gob.NewEncoder(w).Encode(mlp)
}

// Decode reads a network written by Encode. The network lives in a new
// computational graph.
func Decode(r io.Reader) (NeuralNet, error) {
	var mlp multiHeadMLP
	if err := gob.NewDecoder(r).Decode(&mlp); err != nil {
		return nil, fmt.Errorf("decode: %v", err)
	}
	return &mlp, nil
}
