// Package network implements feed-forward neural networks on Gorgonia
// computational graphs
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet is a neural network whose forward pass lives in a Gorgonia
// computational graph. The input node has a fixed batch size; inputs
// and outputs are row-major with one row per sample.
type NeuralNet interface {
	Graph() *G.ExprGraph

	// CloneWithBatch returns a copy of the network in a new graph with a
	// new input batch size
	CloneWithBatch(int) (NeuralNet, error)

	BatchSize() int
	Features() int
	Outputs() int

	// SetInput sets the value of the input node before running the
	// forward pass
	SetInput([]float64) error

	// Set copies the weights of another network of the same
	// architecture
	Set(NeuralNet) error

	// Polyak sets the weights to tau * source + (1 - tau) * current
	Polyak(NeuralNet, float64) error

	Learnables() G.Nodes
	Model() []G.ValueGrad

	// Output returns the value of the prediction after the graph has
	// been run
	Output() G.Value
	Prediction() *G.Node
}
