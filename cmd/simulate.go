package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/iris/internal/env"
	"github.com/luma/iris/internal/simulator"
)

var (
	simulateHost string
	simulatePort int
)

func init() {
	flags := SimulateCmd.PersistentFlags()

	flags.StringVarP(&simulateHost, "host", "a", "127.0.0.1", "The host to listen on")
	flags.IntVarP(&simulatePort, "port", "p", 6555, "The port to listen on")
}

var SimulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a simulated tracker server",
	Long: `Run a simulated tracker server that speaks the same JSON wire
protocol a real device server does. Useful for developing client code
without hardware attached.

Usage
	iris simulate --host 127.0.0.1 --port 6555

`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, signalStop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
		defer signalStop()

		log, err := env.MakeLogger()
		if err != nil {
			return err
		}

		server, err := simulator.New(simulator.Options{
			Host: simulateHost,
			Port: simulatePort,
			Log:  log,
		})
		if err != nil {
			return err
		}

		log.Info("Simulated tracker listening",
			zap.String("host", simulateHost),
			zap.Int("port", server.Port()))

		<-ctx.Done()

		signalStop()
		log.Info("Shutting down")

		return server.Close()
	},
}
