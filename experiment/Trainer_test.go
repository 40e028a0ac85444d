package experiment

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/natagapova/rl-sumo/agent/deepq"
	"github.com/natagapova/rl-sumo/agent/policy"
	"github.com/natagapova/rl-sumo/environment/traffic"
	"github.com/natagapova/rl-sumo/experiment/tracker"
	"github.com/natagapova/rl-sumo/initwfn"
	"github.com/natagapova/rl-sumo/simulator/queuesim"
	"github.com/natagapova/rl-sumo/solver"
)

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// newSetup returns a two junction environment with two actions per
// junction whose episodes last 10 steps, and a DeepQ agent for it with
// a replay capacity of 5 and a batch size of 2
func newSetup(t *testing.T) (*traffic.Env, *deepq.DeepQ) {
	sim, err := queuesim.New(queuesim.Config{
		Junctions:        2,
		LanesPerJunction: 4,
		Phases:           2,
		LaneLength:       50,
		MaxSpeed:         10,
		PhaseDuration:    30,
		ArrivalRate:      0.3,
		DischargeRate:    1,
		Vehicles:         500,
		Seed:             5,
	})
	if err != nil {
		t.Fatal(err)
	}

	env, err := traffic.New(context.Background(), sim, traffic.Config{
		NumJunctions:   2,
		ActionDim:      2,
		ActionRepeat:   1,
		MaxSteps:       10,
		JamDensity:     0.133,
		MaxWaitingTime: 300,
	}, traffic.DefaultRewardWeights(), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { env.Close() })

	a, err := deepq.New(2, 2, env.Encoder().Len(), deepq.Config{
		Gamma:          0.95,
		BatchSize:      2,
		ReplayCapacity: 5,
		Policy: policy.Config{
			Epsilon:    1.0,
			EpsilonMin: 0.01,
			Decay:      0.995,
		},
		HiddenSizes: []int{24, 24},
		Activations: []string{"relu", "relu"},
		Solver:      solver.Default(0.001),
		InitWFn:     initwfn.Config{Type: initwfn.GlorotU, Gain: 1.0},
		Seed:        9,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { a.Close() })

	return env, a
}

func trainConfig(interval int) Config {
	return Config{
		Episodes:        1,
		ActionInterval:  interval,
		TargetSyncEvery: 1,
	}
}

func TestTransitionsPerEpisode(t *testing.T) {
	tests := []struct {
		interval    int
		transitions int
	}{
		{1, 10},
		{2, 5},
		{5, 2},

		// Three full intervals and the partial interval ended by the
		// episode
		{3, 4},
	}

	for _, test := range tests {
		env, a := newSetup(t)
		trainer, err := NewTrainer(env, a, trainConfig(test.interval), nil,
			quietLogger())
		if err != nil {
			t.Fatal(err)
		}

		summary, err := trainer.RunEpisode(context.Background(), 0)
		if err != nil {
			t.Fatal(err)
		}

		if summary.Steps != 10 {
			t.Errorf("interval %v: steps: want(10) have(%v)", test.interval,
				summary.Steps)
		}
		if summary.Transitions != test.transitions {
			t.Errorf("interval %v: transitions: want(%v) have(%v)",
				test.interval, test.transitions, summary.Transitions)
		}
		if summary.LearningSteps < 1 {
			t.Errorf("interval %v: no learning step was taken", test.interval)
		}
		if summary.LearningSteps != a.GradientSteps() {
			t.Errorf("interval %v: learning steps: want(%v) have(%v)",
				test.interval, a.GradientSteps(), summary.LearningSteps)
		}
		if want := minInt(test.transitions, 5); a.ReplayLen() != want {
			t.Errorf("interval %v: replay length: want(%v) have(%v)",
				test.interval, want, a.ReplayLen())
		}
		if summary.Epsilon >= 1.0 {
			t.Errorf("interval %v: epsilon did not decay", test.interval)
		}
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func TestRunCheckpointsAndTracks(t *testing.T) {
	env, a := newSetup(t)
	dir := t.TempDir()

	c := trainConfig(2)
	c.Episodes = 3
	c.CheckpointEvery = 2
	c.CheckpointDir = filepath.Join(dir, "checkpoints")
	c.TrackerDir = filepath.Join(dir, "trackers")

	trainer, err := NewTrainer(env, a, c, nil, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if trainer.RunID() == "" {
		t.Error("run has no identifier")
	}
	if err := trainer.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"agent_episode_0.gob", "agent_episode_2.gob"} {
		if _, err := os.Stat(filepath.Join(c.CheckpointDir, name)); err != nil {
			t.Errorf("missing checkpoint %v: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(c.CheckpointDir,
		"agent_episode_1.gob")); err == nil {
		t.Error("checkpoint written for episode 1")
	}

	returns, err := tracker.LoadData(filepath.Join(c.TrackerDir, "returns.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if len(returns) != 3 {
		t.Errorf("tracked returns: want(3) have(%v)", len(returns))
	}
}

func TestRunWarmStart(t *testing.T) {
	env, a := newSetup(t)
	path := filepath.Join(t.TempDir(), "warm.gob")
	if err := a.Save(path); err != nil {
		t.Fatal(err)
	}

	c := trainConfig(1)
	c.LoadPath = path
	trainer, err := NewTrainer(env, a, c, nil, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := trainer.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	c.LoadPath = filepath.Join(t.TempDir(), "missing.gob")
	trainer, _ = NewTrainer(env, a, c, nil, quietLogger())
	if err := trainer.Run(context.Background()); err == nil {
		t.Error("expected an error for a missing warm start file")
	}
}

func TestRunCancelled(t *testing.T) {
	env, a := newSetup(t)
	c := trainConfig(1)
	c.Episodes = 100

	trainer, err := NewTrainer(env, a, c, nil, quietLogger())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := trainer.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if a.ReplayLen() != 0 {
		t.Error("episodes ran after cancellation")
	}
}

func TestInvalidConfig(t *testing.T) {
	tests := []Config{
		{Episodes: 0, ActionInterval: 1, TargetSyncEvery: 1},
		{Episodes: 1, ActionInterval: 0, TargetSyncEvery: 1},
		{Episodes: 1, ActionInterval: 1, TargetSyncEvery: 0},
		{Episodes: 1, ActionInterval: 1, TargetSyncEvery: 1, CheckpointEvery: 1},
	}
	for _, c := range tests {
		if err := c.Validate(); err == nil {
			t.Errorf("expected an error for %+v", c)
		}
	}
}
