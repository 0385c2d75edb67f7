package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridsim/chargealloc/config"
	"github.com/gridsim/chargealloc/core/controller"
	"github.com/gridsim/chargealloc/infra/logger"
	"github.com/gridsim/chargealloc/sim"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run an in-process simulation without a broker",
	RunE:  simulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
}

func simulate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.SetGlobalLevel(cfg.Logging.Level)
	if err := cfg.Simulation.Validate(); err != nil {
		return fmt.Errorf("simulation config: %w", err)
	}

	simCfg := cfg.Simulation
	// Buffers must cover one epoch's worth of traffic for every subscriber.
	buffer := len(simCfg.Stations) + 3*len(simCfg.Vehicles) + 16
	fabric := sim.NewFabric(buffer)
	defer fabric.Close()

	ctrl, err := controller.New(cfg.Controller, sim.NewPublisher(fabric, "controller"), nil, logger.New("controller"))
	if err != nil {
		return err
	}

	start := time.Now().UTC().Truncate(time.Minute)
	users := make([]*sim.User, 0, len(simCfg.Vehicles))
	for _, vc := range simCfg.Vehicles {
		users = append(users, sim.NewUser(vc, fabric, start, logger.New("user")))
	}
	stations := make([]*sim.Station, 0, len(simCfg.Stations))
	for _, sc := range simCfg.Stations {
		stations = append(stations, sim.NewStation(sc, fabric, logger.New("station")))
	}
	runtime := sim.NewRuntime(simCfg, fabric, start, logger.New("runtime"))

	sim.AttachController(ctx, ctrl, fabric)
	for _, u := range users {
		go u.Run(ctx)
	}
	for _, st := range stations {
		go st.Run(ctx)
	}

	if err := runtime.Run(ctx); err != nil {
		return err
	}
	for _, u := range users {
		fmt.Printf("%s: final state of charge %.2f%%\n", u.ID(), u.SoC())
	}
	return nil
}
