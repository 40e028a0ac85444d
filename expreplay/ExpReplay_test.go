package expreplay

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	ts "github.com/natagapova/rl-sumo/timestep"
)

// transition returns a transition whose reward identifies it
func transition(id float64) ts.Transition {
	return ts.NewTransition(
		mat.NewVecDense(2, []float64{id, id}),
		mat.NewVecDense(1, []float64{0}),
		id,
		mat.NewVecDense(2, []float64{id + 1, id + 1}),
		false,
	)
}

func newBuffer(t *testing.T, capacity int) ExperienceReplayer {
	buffer, err := Config{Capacity: capacity, Seed: 42}.Create(2, 1)
	if err != nil {
		t.Fatal(err)
	}
	return buffer
}

func TestFIFOEviction(t *testing.T) {
	buffer := newBuffer(t, 3)
	for i := 1; i <= 4; i++ {
		if err := buffer.Add(transition(float64(i))); err != nil {
			t.Fatal(err)
		}
	}

	if buffer.Len() != 3 {
		t.Fatalf("size: want(3) have(%v)", buffer.Len())
	}
	contents := buffer.Contents()
	for i, want := range []float64{2, 3, 4} {
		if contents[i].Reward != want {
			t.Errorf("contents[%v]: want(t%v) have(t%v)", i, want,
				contents[i].Reward)
		}
	}

	for i := 0; i < 100; i++ {
		batch, err := buffer.Sample(3)
		if err != nil {
			t.Fatal(err)
		}
		for _, tr := range batch {
			if tr.Reward == 1 {
				t.Fatal("sampled an evicted transition")
			}
		}
	}
}

func TestSampleWithoutReplacement(t *testing.T) {
	buffer := newBuffer(t, 10)
	for i := 0; i < 7; i++ {
		buffer.Add(transition(float64(i)))
	}

	for trial := 0; trial < 200; trial++ {
		batch, err := buffer.Sample(7)
		if err != nil {
			t.Fatal(err)
		}
		seen := map[float64]bool{}
		for _, tr := range batch {
			if seen[tr.Reward] {
				t.Fatalf("transition %v sampled twice in one batch", tr.Reward)
			}
			seen[tr.Reward] = true
		}
	}
}

func TestSampleIsUniform(t *testing.T) {
	buffer := newBuffer(t, 5)
	for i := 0; i < 5; i++ {
		buffer.Add(transition(float64(i)))
	}

	counts := make(map[float64]int)
	const trials = 10000
	for i := 0; i < trials; i++ {
		batch, _ := buffer.Sample(1)
		counts[batch[0].Reward]++
	}

	for id, count := range counts {
		if count < trials/5-400 || count > trials/5+400 {
			t.Errorf("transition %v sampled %v times in %v trials", id, count,
				trials)
		}
	}
}

func TestInsufficientSamples(t *testing.T) {
	buffer := newBuffer(t, 5)

	_, err := buffer.Sample(2)
	if !IsEmptyBuffer(err) || !IsInsufficientSamples(err) {
		t.Errorf("empty buffer: have(%v)", err)
	}

	buffer.Add(transition(1))
	_, err = buffer.Sample(2)
	if !IsInsufficientSamples(err) || IsEmptyBuffer(err) {
		t.Errorf("underfull buffer: have(%v)", err)
	}
	if _, ok := err.(*ExpReplayError); !ok {
		t.Errorf("want *ExpReplayError, have(%T)", err)
	}
}

func TestAddCopiesTransition(t *testing.T) {
	buffer := newBuffer(t, 2)
	tr := transition(1)
	buffer.Add(tr)

	tr.State.SetVec(0, 100)
	if got := buffer.Contents()[0].State.AtVec(0); got != 1 {
		t.Errorf("stored transition changed with its source: %v", got)
	}
}

func TestAddValidatesShape(t *testing.T) {
	buffer := newBuffer(t, 2)
	bad := ts.NewTransition(
		mat.NewVecDense(3, nil),
		mat.NewVecDense(1, nil),
		0,
		mat.NewVecDense(3, nil),
		true,
	)
	if err := buffer.Add(bad); err == nil {
		t.Error("expected an error for a state of the wrong size")
	}
}

func BenchmarkSample(b *testing.B) {
	buffer, _ := Config{Capacity: 100000, Seed: 1}.Create(2, 1)
	for i := 0; i < 100000; i++ {
		buffer.Add(transition(float64(i)))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buffer.Sample(64)
	}
}
