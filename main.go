package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/natagapova/rl-sumo/agent/deepq"
	"github.com/natagapova/rl-sumo/config"
	"github.com/natagapova/rl-sumo/environment/traffic"
	"github.com/natagapova/rl-sumo/experiment"
	"github.com/natagapova/rl-sumo/metrics"
	"github.com/natagapova/rl-sumo/simulator"
	"github.com/natagapova/rl-sumo/simulator/bridge"
	"github.com/natagapova/rl-sumo/simulator/queuesim"
	"github.com/natagapova/rl-sumo/utils/logger"
)

func main() {
	configPath := flag.String("config", "configs/train.yaml",
		"path to the training configuration file")
	watch := flag.Bool("watch", false,
		"reload the logging level when the configuration file changes")
	flag.Parse()

	if err := run(*configPath, *watch); err != nil {
		fmt.Fprintf(os.Stderr, "rl-sumo: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, watch bool) error {
	cfg, v, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.New(cfg.Logging)
	if watch && configPath != "" {
		config.Watch(v, log)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt,
		syscall.SIGTERM)
	defer stop()

	sim, err := newSimulator(ctx, cfg.Simulator, log)
	if err != nil {
		return err
	}

	env, err := traffic.New(ctx, sim, cfg.Environment, cfg.Reward, log)
	if err != nil {
		sim.Close()
		return err
	}
	defer env.Close()

	junctions := len(env.Junctions())
	agent, err := deepq.New(junctions, cfg.Environment.ActionDim,
		env.Encoder().Len(), cfg.Agent)
	if err != nil {
		return err
	}
	defer agent.Close()

	m := metrics.NewTraining()
	server := metrics.NewServer(cfg.Metrics, m, log)
	server.Start()
	defer func() {
		shutdown, cancel := context.WithTimeout(context.Background(),
			5*time.Second)
		defer cancel()
		if err := server.Stop(shutdown); err != nil {
			log.WithError(err).Warn("metrics server did not stop cleanly")
		}
	}()

	trainer, err := experiment.NewTrainer(env, agent, cfg.Training, m, log)
	if err != nil {
		return err
	}
	return trainer.Run(ctx)
}

// newSimulator connects to the configured simulator backend
func newSimulator(ctx context.Context, cfg config.SimulatorConfig,
	log logrus.FieldLogger) (simulator.Simulator, error) {
	switch cfg.Backend {
	case config.BackendQueue:
		log.Info("using queueing simulation")
		sim, err := queuesim.New(cfg.Queue)
		if err != nil {
			return nil, err
		}
		return sim, nil

	default:
		client, err := bridge.Dial(ctx, cfg.Network, cfg.Address,
			cfg.DialTimeout, log)
		if err != nil {
			return nil, err
		}
		client.SetCallTimeout(cfg.CallTimeout)
		return client, nil
	}
}
