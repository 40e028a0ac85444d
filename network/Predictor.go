package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Predictor runs the forward pass of a NeuralNet on any number of
// samples. Samples are fed to the network in chunks of its batch size,
// and the last chunk is padded with zeroes.
type Predictor struct {
	net   NeuralNet
	vm    G.VM
	input []float64
}

// NewPredictor compiles the graph of net into a new Predictor. The graph
// of net should not be shared with another VM.
func NewPredictor(net NeuralNet) *Predictor {
	return &Predictor{
		net:   net,
		vm:    G.NewTapeMachine(net.Graph()),
		input: make([]float64, net.BatchSize()*net.Features()),
	}
}

// Net returns the network run by the Predictor
func (p *Predictor) Net() NeuralNet {
	return p.net
}

// Predict returns the network outputs for each row of input, where
// input holds whole samples of Features() values each. The returned
// slice holds Outputs() values per sample.
func (p *Predictor) Predict(input []float64) ([]float64, error) {
	features := p.net.Features()
	outputs := p.net.Outputs()
	batch := p.net.BatchSize()

	if len(input) == 0 || len(input)%features != 0 {
		return nil, fmt.Errorf("predict: input of length %v does not hold "+
			"whole samples of %v features", len(input), features)
	}
	samples := len(input) / features

	predictions := make([]float64, 0, samples*outputs)
	for start := 0; start < samples; start += batch {
		n := batch
		if samples-start < n {
			n = samples - start
		}

		for i := range p.input {
			p.input[i] = 0
		}
		copy(p.input, input[start*features:(start+n)*features])

		out, err := p.run()
		if err != nil {
			return nil, fmt.Errorf("predict: %v", err)
		}
		predictions = append(predictions, out[:n*outputs]...)
	}

	return predictions, nil
}

// run runs the graph once on the current input buffer
func (p *Predictor) run() ([]float64, error) {
	defer p.vm.Reset()

	// The input node keeps the buffer as its backing, so it is copied to
	// keep later writes to p.input from reaching the graph mid-run
	if err := p.net.SetInput(append([]float64{}, p.input...)); err != nil {
		return nil, err
	}
	if err := p.vm.RunAll(); err != nil {
		return nil, err
	}

	out, ok := p.net.Output().(*tensor.Dense)
	if !ok {
		return nil, fmt.Errorf("network output is not a dense tensor")
	}
	return append([]float64{}, out.Data().([]float64)...), nil
}

// Close releases the resources held by the Predictor's VM
func (p *Predictor) Close() error {
	return p.vm.Close()
}
