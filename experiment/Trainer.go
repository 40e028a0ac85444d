// Package experiment implements the training loop of an agent on an
// environment
package experiment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/natagapova/rl-sumo/agent"
	"github.com/natagapova/rl-sumo/environment"
	"github.com/natagapova/rl-sumo/experiment/checkpointer"
	"github.com/natagapova/rl-sumo/experiment/tracker"
	"github.com/natagapova/rl-sumo/metrics"
	ts "github.com/natagapova/rl-sumo/timestep"
)

// Config configures a training run
type Config struct {
	Episodes int `mapstructure:"episodes"`

	// ActionInterval is the number of environment steps each selected
	// action is held for
	ActionInterval  int `mapstructure:"action_interval"`
	TargetSyncEvery int `mapstructure:"target_sync_every"`

	// CheckpointEvery is the number of episodes between checkpoints.
	// Checkpointing is disabled if it is 0.
	CheckpointEvery int    `mapstructure:"checkpoint_every"`
	CheckpointDir   string `mapstructure:"checkpoint_dir"`

	// LoadPath, if set, holds weights loaded before the first episode
	LoadPath string `mapstructure:"load_path"`

	// TrackerDir, if set, is where episode returns and lengths are saved
	// at the end of the run
	TrackerDir string `mapstructure:"tracker_dir"`
}

// Validate checks that the Config describes a runnable training loop
func (c Config) Validate() error {
	switch {
	case c.Episodes < 1:
		return fmt.Errorf("training: episodes must be positive\n\twant(>0)"+
			"\n\thave(%v)", c.Episodes)
	case c.ActionInterval < 1:
		return fmt.Errorf("training: action interval must be positive"+
			"\n\twant(>0)\n\thave(%v)", c.ActionInterval)
	case c.TargetSyncEvery < 1:
		return fmt.Errorf("training: target sync interval must be positive"+
			"\n\twant(>0)\n\thave(%v)", c.TargetSyncEvery)
	case c.CheckpointEvery < 0:
		return fmt.Errorf("training: checkpoint interval must be "+
			"non-negative\n\thave(%v)", c.CheckpointEvery)
	case c.CheckpointEvery > 0 && c.CheckpointDir == "":
		return fmt.Errorf("training: checkpointing requires a checkpoint " +
			"directory")
	}
	return nil
}

// Agent is an agent that can be trained by a Trainer
type Agent interface {
	agent.Persistent
	Epsilon() float64
	LastLoss() float64
	ReplayLen() int
}

// EpisodeSummary summarises a finished episode
type EpisodeSummary struct {
	Episode       int
	Reward        float64
	Steps         int
	Epsilon       float64
	Transitions   int // Transitions added to the replay buffer
	LearningSteps int // Gradient steps taken
}

// Trainer runs an agent online on an environment. Actions are held
// for a number of environment steps, and the experience of each held
// action is stored as a single transition.
type Trainer struct {
	env          environment.Environment
	agent        Agent
	config       Config
	trackers     []tracker.Tracker
	checkpointer checkpointer.Checkpointer
	metrics      *metrics.Training
	log          logrus.FieldLogger
	runID        string
}

// NewTrainer creates and returns a new Trainer. The metrics parameter
// may be nil. Any trackers given are sent every TimeStep of the run and
// saved once the run is over.
func NewTrainer(env environment.Environment, a Agent, c Config,
	m *metrics.Training, log logrus.FieldLogger,
	trackers ...tracker.Tracker) (*Trainer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	t := &Trainer{
		env:      env,
		agent:    a,
		config:   c,
		trackers: trackers,
		metrics:  m,
		log:      log.WithField("run", runID),
		runID:    runID,
	}

	if c.CheckpointEvery > 0 {
		check, err := checkpointer.NewNEpisode(c.CheckpointEvery, a,
			checkpointer.FilenameEnumerator(c.CheckpointDir, "agent_episode_",
				".gob"), c.CheckpointDir)
		if err != nil {
			return nil, fmt.Errorf("newtrainer: %w", err)
		}
		t.checkpointer = check
	}

	if c.TrackerDir != "" {
		if err := os.MkdirAll(c.TrackerDir, 0o755); err != nil {
			return nil, fmt.Errorf("newtrainer: could not create tracker "+
				"directory: %w", err)
		}
		t.Register(tracker.NewReturn(filepath.Join(c.TrackerDir,
			"returns.bin")))
		t.Register(tracker.NewEpisodeLength(filepath.Join(c.TrackerDir,
			"episode_lengths.bin")))
	}

	return t, nil
}

// RunID returns the unique identifier of the run
func (t *Trainer) RunID() string {
	return t.runID
}

// Register registers a tracker.Tracker with the Trainer so that data
// generated during training can be tracked and saved
func (t *Trainer) Register(tr tracker.Tracker) {
	t.trackers = append(t.trackers, tr)
}

// Run runs all episodes of the run, then saves the tracked data. A
// cancelled context stops the run between episodes and is not an
// error.
func (t *Trainer) Run(ctx context.Context) error {
	if t.config.LoadPath != "" {
		if err := t.agent.Load(t.config.LoadPath); err != nil {
			return fmt.Errorf("run: could not load weights: %w", err)
		}
		t.log.WithField("path", t.config.LoadPath).Info("loaded weights")
	}

	t.log.WithField("episodes", t.config.Episodes).Info("starting training")
	for episode := 0; episode < t.config.Episodes; episode++ {
		if ctx.Err() != nil {
			t.log.WithField("episode", episode).Warn("training interrupted")
			break
		}

		if _, err := t.RunEpisode(ctx, episode); err != nil {
			return fmt.Errorf("run: episode %v: %w", episode, err)
		}
	}

	return t.Save()
}

// RunEpisode runs a single episode, numbered from 0, and performs the
// end of episode target synchronisation and checkpointing
func (t *Trainer) RunEpisode(ctx context.Context,
	episode int) (EpisodeSummary, error) {
	summary := EpisodeSummary{Episode: episode}

	step, err := t.env.Reset(ctx)
	if err != nil {
		return summary, err
	}
	t.track(step)

	var (
		action         *mat.VecDense
		decisionState  *mat.VecDense
		intervalReward float64
		sinceDecision  int
		done           bool
	)
	for !done {
		if sinceDecision == 0 {
			action, err = t.agent.SelectAction(step.Observation)
			if err != nil {
				return summary, err
			}
			decisionState = step.Observation
		}

		step, done, err = t.env.Step(ctx, action)
		if err != nil {
			return summary, err
		}
		t.track(step)

		summary.Reward += step.Reward
		summary.Steps++
		intervalReward += step.Reward
		sinceDecision++

		if sinceDecision < t.config.ActionInterval && !done {
			continue
		}

		transition := ts.NewTransition(decisionState, action, intervalReward,
			step.Observation, done)
		if err := t.agent.Observe(transition); err != nil {
			return summary, err
		}
		summary.Transitions++

		learned, err := t.agent.Step()
		if err != nil {
			return summary, err
		}
		if learned {
			summary.LearningSteps++
			t.metrics.ObserveLearningStep(t.agent.LastLoss())
		}

		sinceDecision = 0
		intervalReward = 0
	}
	summary.Epsilon = t.agent.Epsilon()

	t.log.WithFields(logrus.Fields{
		"episode": episode,
		"reward":  summary.Reward,
		"steps":   summary.Steps,
		"epsilon": summary.Epsilon,
	}).Info("episode finished")
	t.metrics.ObserveEpisode(summary.Reward, summary.Steps, summary.Epsilon,
		t.agent.ReplayLen())

	if episode%t.config.TargetSyncEvery == 0 {
		if err := t.agent.SyncTarget(); err != nil {
			return summary, err
		}
		t.metrics.IncrementTargetSyncs()
		t.log.WithField("episode", episode).Debug("synchronised target network")
	}

	if t.checkpointer != nil {
		path, err := t.checkpointer.Checkpoint(episode)
		if err != nil {
			return summary, err
		}
		if path != "" {
			t.metrics.IncrementCheckpoints()
			t.log.WithField("path", path).Debug("saved checkpoint")
		}
	}

	return summary, nil
}

// Save saves all the data cached by the trackers to disk
func (t *Trainer) Save() error {
	for _, tr := range t.trackers {
		if err := tr.Save(); err != nil {
			return fmt.Errorf("save: %w", err)
		}
	}
	return nil
}

// track tracks the current timestep by caching its data in each
// tracker
func (t *Trainer) track(step ts.TimeStep) {
	for _, tr := range t.trackers {
		tr.Track(step)
	}
}
