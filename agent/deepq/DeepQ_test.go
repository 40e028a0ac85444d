package deepq

import (
	"math"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/natagapova/rl-sumo/agent/policy"
	"github.com/natagapova/rl-sumo/initwfn"
	"github.com/natagapova/rl-sumo/solver"
	ts "github.com/natagapova/rl-sumo/timestep"
)

const (
	testJunctions = 2
	testActions   = 2
	testFeatures  = 3
)

func testConfig() Config {
	return Config{
		Gamma:          0.9,
		BatchSize:      2,
		ReplayCapacity: 5,
		Policy: policy.Config{
			Epsilon:    1.0,
			EpsilonMin: 0.01,
			Decay:      0.995,
		},
		HiddenSizes: []int{16},
		Activations: []string{"tanh"},
		Solver:      solver.Default(0.01),
		InitWFn:     initwfn.Config{Type: initwfn.GlorotU, Gain: 1.0},
		Seed:        3,
	}
}

func newTestAgent(t *testing.T) *DeepQ {
	d, err := New(testJunctions, testActions, testFeatures, testConfig())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func testTransition(reward float64, done bool) ts.Transition {
	return ts.NewTransition(
		mat.NewVecDense(testFeatures, []float64{0.2, 0.5, 0.1}),
		mat.NewVecDense(testJunctions, []float64{1, 0}),
		reward,
		mat.NewVecDense(testFeatures, []float64{0.3, 0.4, 0.0}),
		done,
	)
}

func closeTo(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

func TestBellmanTargets(t *testing.T) {
	batch := []ts.Transition{
		ts.NewTransition(mat.NewVecDense(1, nil),
			mat.NewVecDense(2, []float64{1, 0}), 1.0,
			mat.NewVecDense(1, nil), false),
		ts.NewTransition(mat.NewVecDense(1, nil),
			mat.NewVecDense(2, []float64{0, 1}), -1.0,
			mat.NewVecDense(1, nil), true),
	}
	nextValues := []float64{
		0.5, 2.0, 3.0, -1.0,
		9.0, 9.0, 9.0, 9.0,
	}

	targets, mask, err := BellmanTargets(batch, nextValues, 2, 2, 0.9)
	if err != nil {
		t.Fatal(err)
	}

	wantTargets := []float64{0, 2.8, 3.7, 0, -1, 0, 0, -1}
	wantMask := []float64{0, 1, 1, 0, 1, 0, 0, 1}
	if !closeTo(targets, wantTargets, 1e-12) {
		t.Errorf("targets: want(%v) have(%v)", wantTargets, targets)
	}
	if !closeTo(mask, wantMask, 0) {
		t.Errorf("mask: want(%v) have(%v)", wantMask, mask)
	}
}

func TestBellmanTargetsInvalid(t *testing.T) {
	batch := []ts.Transition{testTransition(0, false)}

	if _, _, err := BellmanTargets(batch, make([]float64, 3), 2, 2,
		0.9); err == nil {
		t.Error("expected an error for a short value slice")
	}

	bad := testTransition(0, false)
	bad.Action.SetVec(0, 2)
	if _, _, err := BellmanTargets([]ts.Transition{bad}, make([]float64, 4),
		2, 2, 0.9); err == nil {
		t.Error("expected an error for an out of range action")
	}
}

func TestStepNeedsFullBatch(t *testing.T) {
	d := newTestAgent(t)

	if err := d.Observe(testTransition(1, true)); err != nil {
		t.Fatal(err)
	}
	stepped, err := d.Step()
	if err != nil {
		t.Fatal(err)
	}
	if stepped || d.GradientSteps() != 0 {
		t.Error("agent learned from fewer transitions than the batch size")
	}
	if d.Epsilon() != 1.0 {
		t.Errorf("epsilon decayed without learning: have(%v)", d.Epsilon())
	}

	d.Observe(testTransition(1, true))
	stepped, err = d.Step()
	if err != nil {
		t.Fatal(err)
	}
	if !stepped || d.GradientSteps() != 1 {
		t.Error("agent did not learn from a full batch")
	}
	if want := 0.995; math.Abs(d.Epsilon()-want) > 1e-12 {
		t.Errorf("epsilon: want(%v) have(%v)", want, d.Epsilon())
	}
}

func TestSyncTarget(t *testing.T) {
	d := newTestAgent(t)
	state := []float64{0.2, 0.5, 0.1}

	d.Observe(testTransition(5, true))
	d.Observe(testTransition(5, true))
	if _, err := d.Step(); err != nil {
		t.Fatal(err)
	}

	behaviour, _ := d.Predict(state)
	target, _ := d.TargetPredict(state)
	if closeTo(behaviour, target, 1e-12) {
		t.Error("target network changed before synchronisation")
	}

	if err := d.SyncTarget(); err != nil {
		t.Fatal(err)
	}
	target, _ = d.TargetPredict(state)
	if !closeTo(behaviour, target, 1e-12) {
		t.Errorf("target after sync: want(%v) have(%v)", behaviour, target)
	}
}

func TestLearnsTerminalReward(t *testing.T) {
	d := newTestAgent(t)
	for i := 0; i < 5; i++ {
		d.Observe(testTransition(1, true))
	}

	for i := 0; i < 400; i++ {
		if _, err := d.Step(); err != nil {
			t.Fatal(err)
		}
	}

	values, err := d.Predict([]float64{0.2, 0.5, 0.1})
	if err != nil {
		t.Fatal(err)
	}

	// Action [1, 0]: action 1 at junction 0 and action 0 at junction 1
	if math.Abs(values[1]-1) > 0.1 || math.Abs(values[2]-1) > 0.1 {
		t.Errorf("taken action values did not approach the reward: %v",
			values)
	}
	if d.LastLoss() > 0.01 {
		t.Errorf("loss did not decrease: have(%v)", d.LastLoss())
	}
}

func TestSaveLoad(t *testing.T) {
	d := newTestAgent(t)
	d.Observe(testTransition(2, false))
	d.Observe(testTransition(-1, true))
	for i := 0; i < 3; i++ {
		d.Step()
	}

	path := filepath.Join(t.TempDir(), "agent.gob")
	if err := d.Save(path); err != nil {
		t.Fatal(err)
	}

	c := testConfig()
	c.Seed = 11
	loaded, err := New(testJunctions, testActions, testFeatures, c)
	if err != nil {
		t.Fatal(err)
	}
	defer loaded.Close()
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}

	state := []float64{0.7, 0.1, 0.9}
	want, _ := d.Predict(state)
	have, _ := loaded.Predict(state)
	if !closeTo(want, have, 0) {
		t.Errorf("loaded predictions: want(%v) have(%v)", want, have)
	}
	target, _ := loaded.TargetPredict(state)
	if !closeTo(want, target, 1e-12) {
		t.Error("target network not synchronised on load")
	}
}

func TestEvalIsGreedy(t *testing.T) {
	d := newTestAgent(t)
	state := mat.NewVecDense(testFeatures, []float64{0.2, 0.5, 0.1})

	values, _ := d.Predict(state.RawVector().Data)
	want, _ := policy.Argmax(values, testJunctions, testActions)

	d.Eval()
	for i := 0; i < 20; i++ {
		action, err := d.SelectAction(state)
		if err != nil {
			t.Fatal(err)
		}
		if !mat.Equal(action, want) {
			t.Fatalf("eval action: want(%v) have(%v)", mat.Formatted(want.T()),
				mat.Formatted(action.T()))
		}
	}
	if !d.IsEval() {
		t.Error("agent not in evaluation mode")
	}
}

func TestInvalidConfig(t *testing.T) {
	c := testConfig()
	c.ReplayCapacity = 1
	if _, err := New(testJunctions, testActions, testFeatures, c); err == nil {
		t.Error("expected an error for a replay buffer smaller than a batch")
	}

	c = testConfig()
	c.Activations = []string{"swish"}
	if _, err := New(testJunctions, testActions, testFeatures, c); err == nil {
		t.Error("expected an error for an unknown activation")
	}
}
