package network

import (
	"bytes"
	"encoding/gob"
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// multiHeadMLP implements a multi-layered perceptron with multiple
// output nodes, one for each value that should be predicted.
type multiHeadMLP struct {
	g          *G.ExprGraph
	layers     []*fcLayer
	input      *G.Node
	numOutputs int
	numInputs  int
	batchSize  int

	// Data needed for gobbing and cloning. These describe the hidden
	// layers only; the linear output layer is implied.
	hiddenSizes []int
	biases      []bool
	activations []*Activation

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node

	// predVal is filled by running the graph. It is a pointer so that
	// copies of the struct observe the same value.
	predVal *G.Value
}

// NewMultiHeadMLP creates and returns a new multi-layered perceptron
// that has multiple output nodes, The number of outputs nodes is equal
// to outputs. The graph parameter g is populated with the MLP.
//
// The MLP has number of layers equal to len(hiddenSizes) + 1. A final
// linear layer with a bias unit is always added so that the network
// produces outputs values per sample. For index i, hiddenSizes[i] is
// the number of nodes in hidden layer i; biases[i] is true if the
// hidden layer will contain a bias unit and false otherwise; and
// activations[i] is the activation function for hidden layer i. The
// parameter init determines the weight initialization scheme.
func NewMultiHeadMLP(features, batch, outputs int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation) (NeuralNet, error) {
	if len(hiddenSizes) != len(activations) {
		msg := "newmultiheadmlp: invalid number of activations" +
			"\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}
	if len(hiddenSizes) != len(biases) {
		msg := "newmultiheadmlp: invalid number of biases\n\twant(%d)" +
			"\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(biases))
	}
	if features < 1 || batch < 1 || outputs < 1 {
		return nil, fmt.Errorf("newmultiheadmlp: features, batch size, and " +
			"outputs must be positive")
	}
	for i, size := range hiddenSizes {
		if size < 1 {
			return nil, fmt.Errorf("newmultiheadmlp: hidden layer %v has "+
				"invalid size %v", i, size)
		}
	}

	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	// Layer descriptions including the output layer
	sizes := append(append([]int{}, hiddenSizes...), outputs)
	layerBiases := append(append([]bool{}, biases...), true)
	layerActs := append(append([]*Activation{}, activations...), Identity())
	layers := addfcLayers(g, sizes, layerBiases, layerActs, init, features)

	network := &multiHeadMLP{
		g:           g,
		layers:      layers,
		input:       input,
		numOutputs:  outputs,
		numInputs:   features,
		batchSize:   batch,
		hiddenSizes: append([]int{}, hiddenSizes...),
		biases:      append([]bool{}, biases...),
		activations: append([]*Activation{}, activations...),
	}
	if _, err := network.fwd(input); err != nil {
		msg := "newmultiheadmlp: could not compute forward pass: %v"
		return nil, fmt.Errorf(msg, err)
	}

	return network, nil
}

// Graph returns the computational graph of the multiHeadMLP.
func (e *multiHeadMLP) Graph() *G.ExprGraph {
	return e.g
}

// CloneWithBatch clones a multiHeadMLP into a new graph with a new
// input batch size. The weights of the clone are copies of the
// weights of e.
func (e *multiHeadMLP) CloneWithBatch(batchSize int) (NeuralNet, error) {
	clone, err := NewMultiHeadMLP(e.numInputs, batchSize, e.numOutputs,
		G.NewGraph(), e.hiddenSizes, e.biases, G.Zeroes(), e.activations)
	if err != nil {
		return nil, fmt.Errorf("clonewithbatch: could not clone: %v", err)
	}
	if err := clone.Set(e); err != nil {
		return nil, fmt.Errorf("clonewithbatch: could not copy weights: %v",
			err)
	}
	return clone, nil
}

// BatchSize returns the batch size of inputs to the network
func (e *multiHeadMLP) BatchSize() int {
	return e.batchSize
}

// Features returns the number of features in a single input vector
func (e *multiHeadMLP) Features() int {
	return e.numInputs
}

// Outputs returns the number of outputs from the network
func (e *multiHeadMLP) Outputs() int {
	return e.numOutputs
}

// SetInput sets the value of the input node before running the forward
// pass.
func (e *multiHeadMLP) SetInput(input []float64) error {
	if len(input) != e.numInputs*e.batchSize {
		return fmt.Errorf("setinput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", e.numInputs*e.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(e.input.Shape()...),
	)
	return G.Let(e.input, inputTensor)
}

// compatible returns an error if source cannot provide weights for e
func (e *multiHeadMLP) compatible(source NeuralNet) error {
	sourceNodes := source.Learnables()
	nodes := e.Learnables()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("incompatible networks\n\twant(%v learnables)"+
			"\n\thave(%v learnables)", len(nodes), len(sourceNodes))
	}
	for i := range nodes {
		if !nodes[i].Shape().Eq(sourceNodes[i].Shape()) {
			return fmt.Errorf("incompatible shapes for learnable %v"+
				"\n\twant(%v)\n\thave(%v)", i, nodes[i].Shape(),
				sourceNodes[i].Shape())
		}
	}
	return nil
}

// Set sets the weights of a multiHeadMLP to be equal to the
// weights of another network. The weights are copied, so later changes
// to the source do not affect dest.
func (dest *multiHeadMLP) Set(source NeuralNet) error {
	if err := dest.compatible(source); err != nil {
		return fmt.Errorf("set: %v", err)
	}

	sourceNodes := source.Learnables()
	for i, destLearnable := range dest.Learnables() {
		weights, ok := sourceNodes[i].Value().(*tensor.Dense)
		if !ok {
			return fmt.Errorf("set: learnable %v has no dense value", i)
		}
		if err := G.Let(destLearnable, weights.Clone().(*tensor.Dense)); err != nil {
			return fmt.Errorf("set: %v", err)
		}
	}
	return nil
}

// Polyak sets the weights of a multiHeadMLP to be a polyak
// average between its existing weights and the weights of another
// network
func (dest *multiHeadMLP) Polyak(source NeuralNet, tau float64) error {
	if err := dest.compatible(source); err != nil {
		return fmt.Errorf("polyak: %v", err)
	}

	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	for i := range nodes {
		weights := nodes[i].Value().(*tensor.Dense)
		sourceWeights := sourceNodes[i].Value().(*tensor.Dense)

		weights, err := weights.MulScalar(1-tau, true)
		if err != nil {
			return err
		}

		sourceWeights, err = sourceWeights.MulScalar(tau, true)
		if err != nil {
			return err
		}

		newWeights, err := weights.Add(sourceWeights)
		if err != nil {
			return err
		}

		if err := G.Let(nodes[i], newWeights); err != nil {
			return err
		}
	}
	return nil
}

// Learnables returns the learnable nodes in a multiHeadMLP
func (m *multiHeadMLP) Learnables() G.Nodes {
	// Lazy instantiation
	if m.learnables == nil {
		m.learnables = m.computeLearnables()
	}
	return m.learnables
}

// computeLearnables computes all the learnables for the network
func (e *multiHeadMLP) computeLearnables() G.Nodes {
	learnables := make([]*G.Node, 0, 2*len(e.layers))

	for i := range e.layers {
		learnables = append(learnables, e.layers[i].Weights())
		if bias := e.layers[i].Bias(); bias != nil {
			learnables = append(learnables, bias)
		}
	}
	return G.Nodes(learnables)
}

// Model returns the learnables nodes with their gradients.
func (m *multiHeadMLP) Model() []G.ValueGrad {
	// Lazy instantiation
	if m.model == nil {
		m.model = m.computeModel()
	}
	return m.model
}

// computeModel computes the model for the network
func (e *multiHeadMLP) computeModel() []G.ValueGrad {
	model := make([]G.ValueGrad, 0, 2*len(e.layers))
	for _, node := range e.Learnables() {
		model = append(model, node)
	}
	return model
}

// fwd performs the forward pass of the multiHeadMLP on the input
// node
func (e *multiHeadMLP) fwd(input *G.Node) (*G.Node, error) {
	inputShape := input.Shape()[len(input.Shape())-1]
	if inputShape != e.numInputs {
		return nil, fmt.Errorf("fwd: invalid shape for input to neural net:"+
			" \n\twant(%v) \n\thave(%v)", e.numInputs, inputShape)
	}

	pred := input
	var err error
	for i, l := range e.layers {
		if pred, err = l.fwd(pred); err != nil {
			msg := "fwd: could not compute forward pass of layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	e.prediction = pred
	e.predVal = new(G.Value)
	G.Read(e.prediction, e.predVal)

	return pred, nil
}

// Output returns the output of the multiHeadMLP.
func (e *multiHeadMLP) Output() G.Value {
	return *e.predVal
}

// Prediction returns the node of the computational graph the stores
// the output of the multiHeadMLP
func (e *multiHeadMLP) Prediction() *G.Node {
	return e.prediction
}

// mlpData is the serialized form of a multiHeadMLP
type mlpData struct {
	Features    int
	Outputs     int
	Batch       int
	HiddenSizes []int
	Biases      []bool
	Activations []*Activation
	Shapes      [][]int
	Weights     [][]float64
}

// GobEncode implements the gob.GobEncoder interface
func (e *multiHeadMLP) GobEncode() ([]byte, error) {
	data := mlpData{
		Features:    e.numInputs,
		Outputs:     e.numOutputs,
		Batch:       e.batchSize,
		HiddenSizes: e.hiddenSizes,
		Biases:      e.biases,
		Activations: e.activations,
	}
	for i, node := range e.Learnables() {
		weights, ok := node.Value().(*tensor.Dense)
		if !ok {
			return nil, fmt.Errorf("gobencode: learnable %v has no dense "+
				"value", i)
		}
		data.Shapes = append(data.Shapes, []int(weights.Shape().Clone()))
		data.Weights = append(data.Weights,
			append([]float64{}, weights.Data().([]float64)...))
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode network: %v", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface. The decoded
// network lives in a new computational graph.
func (e *multiHeadMLP) GobDecode(in []byte) error {
	var data mlpData
	if err := gob.NewDecoder(bytes.NewReader(in)).Decode(&data); err != nil {
		return fmt.Errorf("gobdecode: could not decode network: %v", err)
	}

	net, err := NewMultiHeadMLP(data.Features, data.Batch, data.Outputs,
		G.NewGraph(), data.HiddenSizes, data.Biases, G.Zeroes(),
		data.Activations)
	if err != nil {
		return fmt.Errorf("gobdecode: could not construct new MLP: %v", err)
	}
	newMLP := net.(*multiHeadMLP)

	if err := newMLP.setWeights(data.Shapes, data.Weights); err != nil {
		return fmt.Errorf("gobdecode: %v", err)
	}

	*e = *newMLP
	return nil
}

// setWeights binds raw weights to the learnables of the network
func (e *multiHeadMLP) setWeights(shapes [][]int, weights [][]float64) error {
	nodes := e.Learnables()
	if len(shapes) != len(nodes) || len(weights) != len(nodes) {
		return fmt.Errorf("invalid number of learnables\n\twant(%v)"+
			"\n\thave(%v)", len(nodes), len(weights))
	}

	for i, node := range nodes {
		if !node.Shape().Eq(tensor.Shape(shapes[i])) {
			return fmt.Errorf("invalid shape for learnable %v\n\twant(%v)"+
				"\n\thave(%v)", i, node.Shape(), shapes[i])
		}
		t := tensor.New(
			tensor.WithShape(shapes[i]...),
			tensor.WithBacking(append([]float64{}, weights[i]...)),
		)
		if err := G.Let(node, t); err != nil {
			return err
		}
	}
	return nil
}
