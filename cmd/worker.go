package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/approval-workflow/internal"
	"github.com/frahmantamala/approval-workflow/internal/dispatch"
	"github.com/frahmantamala/approval-workflow/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background workers that drain queued workflow side effects.`,
}

var effectsWorkerCmd = &cobra.Command{
	Use:   "effects",
	Short: "Deliver queued side effects",
	Long:  `Consume the side-effect stream and deliver notifications and document requests to their webhooks.`,
	Run: func(cmd *cobra.Command, args []string) {
		startEffectsWorker()
	},
}

var (
	consumerName  string
	batchSize     int
	blockFor      time.Duration
	minIdle       time.Duration
	maxDeliveries int
)

func startEffectsWorker() {
	config, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	lg := logger.LoggerWrapper()

	if config.Dispatch.Mode != internal.DispatchModeStream {
		lg.Warn("dispatch mode is not stream; the server will not queue effects for this worker", "mode", config.Dispatch.Mode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := initRedis(ctx, config.Redis)
	if err != nil {
		lg.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	if consumerName == "" {
		host, _ := os.Hostname()
		consumerName = fmt.Sprintf("%s-%d", host, os.Getpid())
	}

	workerConfig := effectsWorkerConfig(config, consumerName)

	worker := dispatch.NewStreamWorker(client, workerConfig, newExecutor(config.Dispatch, lg), lg)
	if err := worker.Run(ctx); err != nil {
		lg.Error("effects worker stopped", "error", err)
		os.Exit(1)
	}
	lg.Info("effects worker shutdown complete")
}

// effectsWorkerConfig merges command flags over the loaded configuration.
func effectsWorkerConfig(config *internal.Config, consumer string) dispatch.WorkerConfig {
	return dispatch.WorkerConfig{
		Stream:        config.Redis.Stream,
		Group:         config.Redis.Group,
		Consumer:      consumer,
		Batch:         int64(batchSize),
		Block:         blockFor,
		MinIdle:       minIdle,
		MaxDeliveries: int64(getIntFlag(maxDeliveries, config.Dispatch.MaxRetries)),
	}
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	effectsWorkerCmd.Flags().StringVar(&consumerName, "consumer", "", "Consumer name within the group (default host-pid)")
	effectsWorkerCmd.Flags().IntVar(&batchSize, "batch", 0, "Messages read per poll")
	effectsWorkerCmd.Flags().DurationVar(&blockFor, "block", 0, "How long a poll waits for new messages")
	effectsWorkerCmd.Flags().DurationVar(&minIdle, "min-idle", 0, "Idle time before another consumer's pending message is reclaimed")
	effectsWorkerCmd.Flags().IntVar(&maxDeliveries, "max-deliveries", 0, "Deliveries before a message is dropped (overrides config)")

	workerCmd.AddCommand(effectsWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
