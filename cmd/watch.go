package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/iris/client"
	"github.com/luma/iris/internal/env"
	"github.com/luma/iris/state"
)

var (
	// The tracker server to connect to
	watchHost string
	watchPort int

	// The port to serve the debug state endpoint on, empty disables it
	watchHTTPPort string
)

func init() {
	flags := WatchCmd.PersistentFlags()

	flags.StringVarP(&watchHost, "host", "a", "", "The tracker host to connect to")
	flags.IntVarP(&watchPort, "port", "p", 0, "The tracker port to connect to")
	flags.StringVar(&watchHTTPPort, "http-port", "", "Serve the cached device state over HTTP on this port")
}

// frameWriter streams every gaze frame to stdout, one line per sample.
type frameWriter struct{}

func (frameWriter) OnGazeFrame(frame state.Frame) {
	fmt.Printf("%d\t%.1f,%.1f\tfix=%v\n", frame.Time, frame.Avg.X, frame.Avg.Y, frame.Fix)
}

// connectionWriter reports connection changes on stderr.
type connectionWriter struct {
	log *zap.Logger
}

func (c connectionWriter) OnConnectionStateChanged(connected bool) {
	c.log.Info("Connection state changed", zap.Bool("connected", connected))
}

var WatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Connect to a tracker and stream gaze frames",
	Long: `Connect to a tracker server and stream gaze frames to stdout.

Usage
	iris watch --host 127.0.0.1 --port 6555

`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, signalStop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
		defer signalStop()

		log, err := env.MakeLogger()
		if err != nil {
			return err
		}

		conf, err := env.LoadConfig(ctx)
		if err != nil {
			return err
		}

		if watchHost == "" {
			watchHost = conf.TrackerHost
		}

		if watchPort == 0 {
			watchPort = conf.TrackerPort
		}

		tracker := client.New(client.Options{Log: log.Named("client")})

		tracker.AddGazeListener(frameWriter{})
		tracker.AddConnectionStateListener(connectionWriter{log: log})

		if !tracker.Connect(watchHost, watchPort) {
			return fmt.Errorf("Failed to connect to tracker at %s:%d", watchHost, watchPort)
		}

		defer tracker.Disconnect()

		log.Info("Watching tracker",
			zap.String("host", watchHost),
			zap.Int("port", watchPort),
			zap.Int("version", tracker.GetServerState().Version))

		var server *http.Server

		if watchHTTPPort != "" {
			server = &http.Server{
				Addr:    net.JoinHostPort("0.0.0.0", watchHTTPPort),
				Handler: stateRouter(tracker, conf.DebugHTTP, log),
			}

			// Initializing the server in a goroutine so that
			// it won't block the shutdown handling below
			go func() {
				if herr := server.ListenAndServe(); herr != nil && !errors.Is(herr, http.ErrServerClosed) {
					log.Error("Http server errored", zap.Error(herr))
				}
			}()
		}

		<-ctx.Done()

		signalStop()
		log.Info("Shutting down")

		if server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			server.SetKeepAlivesEnabled(false)

			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error("Http server forced to shutdown", zap.Error(err))
			}
		}

		return nil
	},
}

// stateRouter exposes the engine's cached device state for debugging.
func stateRouter(tracker *client.GazeTracker, debugHTTP bool, log *zap.Logger) *gin.Engine {
	gin.DisableConsoleColor()
	if !debugHTTP {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(ginzap.Ginzap(log, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(log, true))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	r.GET("/state", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"connected": tracker.IsConnected(),
			"server":    tracker.GetServerState(),
			"screen":    tracker.GetScreen(),
			"frame":     tracker.GetFrame(),
			"calibration": gin.H{
				"result": tracker.GetCalibResult(),
			},
		})
	})

	return r
}
