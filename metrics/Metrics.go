// Package metrics exposes training progress as Prometheus metrics
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Training holds the Prometheus collectors of a training run. A nil
// *Training is valid and records nothing.
type Training struct {
	registry *prometheus.Registry

	// Gauges
	episodeReward prometheus.Gauge
	episodeSteps  prometheus.Gauge
	epsilon       prometheus.Gauge
	replaySize    prometheus.Gauge
	loss          prometheus.Gauge

	// Counters
	episodes      prometheus.Counter
	learningSteps prometheus.Counter
	targetSyncs   prometheus.Counter
	checkpoints   prometheus.Counter
}

// NewTraining creates the training collectors on a new registry
func NewTraining() *Training {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Training{
		registry: reg,
		episodeReward: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rlsumo_episode_reward",
			Help: "Total reward of the last finished episode",
		}),
		episodeSteps: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rlsumo_episode_steps",
			Help: "Number of environment steps in the last finished episode",
		}),
		epsilon: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rlsumo_epsilon",
			Help: "Current exploration rate",
		}),
		replaySize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rlsumo_replay_size",
			Help: "Number of transitions in the replay buffer",
		}),
		loss: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rlsumo_loss",
			Help: "Loss of the most recent gradient step",
		}),
		episodes: factory.NewCounter(prometheus.CounterOpts{
			Name: "rlsumo_episodes_total",
			Help: "Total number of finished episodes",
		}),
		learningSteps: factory.NewCounter(prometheus.CounterOpts{
			Name: "rlsumo_learning_steps_total",
			Help: "Total number of gradient steps",
		}),
		targetSyncs: factory.NewCounter(prometheus.CounterOpts{
			Name: "rlsumo_target_syncs_total",
			Help: "Total number of target network synchronisations",
		}),
		checkpoints: factory.NewCounter(prometheus.CounterOpts{
			Name: "rlsumo_checkpoints_total",
			Help: "Total number of saved checkpoints",
		}),
	}
}

// Registry returns the registry holding the training collectors
func (m *Training) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveEpisode records the summary of a finished episode
func (m *Training) ObserveEpisode(reward float64, steps int, epsilon float64,
	replaySize int) {
	if m == nil {
		return
	}
	m.episodes.Inc()
	m.episodeReward.Set(reward)
	m.episodeSteps.Set(float64(steps))
	m.epsilon.Set(epsilon)
	m.replaySize.Set(float64(replaySize))
}

// ObserveLearningStep records a gradient step and its loss
func (m *Training) ObserveLearningStep(loss float64) {
	if m == nil {
		return
	}
	m.learningSteps.Inc()
	m.loss.Set(loss)
}

// IncrementTargetSyncs increments the target synchronisation counter
func (m *Training) IncrementTargetSyncs() {
	if m == nil {
		return
	}
	m.targetSyncs.Inc()
}

// IncrementCheckpoints increments the checkpoint counter
func (m *Training) IncrementCheckpoints() {
	if m == nil {
		return
	}
	m.checkpoints.Inc()
}
