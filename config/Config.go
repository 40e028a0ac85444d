// Package config loads the configuration of a training run from a YAML
// file, defaults, and RLSUMO_ environment variables
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/natagapova/rl-sumo/agent/deepq"
	"github.com/natagapova/rl-sumo/environment/traffic"
	"github.com/natagapova/rl-sumo/experiment"
	"github.com/natagapova/rl-sumo/metrics"
	"github.com/natagapova/rl-sumo/simulator/queuesim"
	"github.com/natagapova/rl-sumo/utils/logger"
)

// Simulator backends
const (
	BackendBridge = "bridge"
	BackendQueue  = "queue"
)

// Config holds the configuration of a training run
type Config struct {
	Simulator   SimulatorConfig       `mapstructure:"simulator"`
	Environment traffic.Config        `mapstructure:"environment"`
	Reward      traffic.RewardWeights `mapstructure:"reward"`
	Agent       deepq.Config          `mapstructure:"agent"`
	Training    experiment.Config     `mapstructure:"training"`
	Logging     logger.Config         `mapstructure:"logging"`
	Metrics     metrics.Config        `mapstructure:"metrics"`
}

// SimulatorConfig selects and configures the simulator backend
type SimulatorConfig struct {
	Backend string `mapstructure:"backend"`

	// Bridge settings
	Network     string        `mapstructure:"network"`
	Address     string        `mapstructure:"address"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`

	// CallTimeout bounds every call to the bridge; 0 disables it
	CallTimeout time.Duration `mapstructure:"call_timeout"`

	Queue queuesim.Config `mapstructure:"queue"`
}

// Load reads the configuration file at path, which may be empty to use
// defaults and environment variables only
func Load(path string) (*Config, *viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RLSUMO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("load: could not read config file: %w",
				err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, nil, fmt.Errorf("load: could not decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, nil, fmt.Errorf("load: %w", err)
	}

	return &c, v, nil
}

// Validate checks every section of the configuration
func (c *Config) Validate() error {
	switch c.Simulator.Backend {
	case BackendBridge:
		if c.Simulator.Address == "" {
			return fmt.Errorf("simulator: bridge backend requires an address")
		}
		if c.Simulator.Network != "unix" && c.Simulator.Network != "tcp" {
			return fmt.Errorf("simulator: unknown network %q",
				c.Simulator.Network)
		}
	case BackendQueue:
		if err := c.Simulator.Queue.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("simulator: unknown backend %q", c.Simulator.Backend)
	}

	if err := c.Environment.Validate(); err != nil {
		return err
	}
	if err := c.Agent.Validate(); err != nil {
		return err
	}
	return c.Training.Validate()
}

// Watch reloads the configuration file whenever it changes and applies
// the new logging level to log. Other settings only take effect on the
// next run.
func Watch(v *viper.Viper, log *logrus.Logger) {
	v.OnConfigChange(func(e fsnotify.Event) {
		level := v.GetString("logging.level")
		logger.SetLevel(log, level)
		log.WithFields(logrus.Fields{
			"file":  e.Name,
			"level": level,
		}).Info("config file changed")
	})
	v.WatchConfig()
}

func setDefaults(v *viper.Viper) {
	// Simulator defaults
	v.SetDefault("simulator.backend", BackendBridge)
	v.SetDefault("simulator.network", "tcp")
	v.SetDefault("simulator.address", "127.0.0.1:8813")
	v.SetDefault("simulator.dial_timeout", "10s")
	v.SetDefault("simulator.call_timeout", "0s")
	v.SetDefault("simulator.queue.junctions", 9)
	v.SetDefault("simulator.queue.lanes_per_junction", 4)
	v.SetDefault("simulator.queue.phases", 4)
	v.SetDefault("simulator.queue.lane_length", 100.0)
	v.SetDefault("simulator.queue.max_speed", 13.9)
	v.SetDefault("simulator.queue.phase_duration", 30.0)
	v.SetDefault("simulator.queue.arrival_rate", 0.1)
	v.SetDefault("simulator.queue.discharge_rate", 1)
	v.SetDefault("simulator.queue.vehicles", 1000)
	v.SetDefault("simulator.queue.seed", 0)

	// Environment defaults
	v.SetDefault("environment.num_junctions", 9)
	v.SetDefault("environment.action_dim", 4)
	v.SetDefault("environment.action_repeat", 10)
	v.SetDefault("environment.max_steps", 360)
	v.SetDefault("environment.jam_density", 0.133)
	v.SetDefault("environment.max_waiting_time", 300.0)

	// Reward defaults
	weights := traffic.DefaultRewardWeights()
	v.SetDefault("reward.waiting", weights.Waiting)
	v.SetDefault("reward.halting", weights.Halting)
	v.SetDefault("reward.throughput", weights.Throughput)
	v.SetDefault("reward.speed", weights.Speed)

	// Agent defaults
	v.SetDefault("agent.gamma", 0.95)
	v.SetDefault("agent.epsilon", 1.0)
	v.SetDefault("agent.epsilon_min", 0.01)
	v.SetDefault("agent.epsilon_decay", 0.995)
	v.SetDefault("agent.batch_size", 64)
	v.SetDefault("agent.replay_capacity", 100000)
	v.SetDefault("agent.hidden_sizes", []int{128, 64})
	v.SetDefault("agent.biases", []bool{true, true})
	v.SetDefault("agent.activations", []string{"relu", "relu"})
	v.SetDefault("agent.solver.type", "adam")
	v.SetDefault("agent.solver.step_size", 0.001)
	v.SetDefault("agent.solver.epsilon", 1e-7)
	v.SetDefault("agent.solver.beta1", 0.9)
	v.SetDefault("agent.solver.beta2", 0.999)
	v.SetDefault("agent.solver.rho", 0.9)
	v.SetDefault("agent.solver.clip", 0.0)
	v.SetDefault("agent.init.type", "glorot_uniform")
	v.SetDefault("agent.init.gain", 1.0)
	v.SetDefault("agent.seed", 0)

	// Training defaults
	v.SetDefault("training.episodes", 1000)
	v.SetDefault("training.action_interval", 1)
	v.SetDefault("training.target_sync_every", 5)
	v.SetDefault("training.checkpoint_every", 100)
	v.SetDefault("training.checkpoint_dir", "models")
	v.SetDefault("training.load_path", "")
	v.SetDefault("training.tracker_dir", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", ":9090")
	v.SetDefault("metrics.path", "/metrics")
}
