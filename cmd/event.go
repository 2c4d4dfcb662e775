package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/approval-workflow/internal"
	"github.com/frahmantamala/approval-workflow/internal/dispatch"
	"github.com/frahmantamala/approval-workflow/internal/workflow"
	"github.com/frahmantamala/approval-workflow/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Side-effect management commands",
	Long:  `Publish test side effects through the configured dispatch path.`,
}

var publishEventCmd = &cobra.Command{
	Use:       "publish [notify|generate_document]",
	Short:     "Publish a test side effect",
	Long:      `Queue a side effect on the effects stream in stream mode, or deliver it directly in inline mode.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(workflow.SideEffectNotify), string(workflow.SideEffectGenerateDocument)},
	Run: func(cmd *cobra.Command, args []string) {
		publishTestEffect(workflow.SideEffectKind(args[0]))
	},
}

var testEffect workflow.SideEffect

func publishTestEffect(kind workflow.SideEffectKind) {
	config, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	lg := logger.LoggerWrapper()
	ctx := context.Background()

	effect := testEffect
	effect.Kind = kind

	if config.Dispatch.Mode != internal.DispatchModeStream {
		if err := newExecutor(config.Dispatch, lg).Execute(ctx, effect); err != nil {
			lg.Error("failed to deliver side effect", "error", err)
			os.Exit(1)
		}
		lg.Info("test side effect delivered", "kind", string(kind))
		return
	}

	client, err := initRedis(ctx, config.Redis)
	if err != nil {
		lg.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	id, err := dispatch.NewStreamPublisher(client, config.Redis.Stream, lg).Publish(ctx, effect)
	if err != nil {
		lg.Error("failed to queue side effect", "error", err)
		os.Exit(1)
	}
	lg.Info("test side effect queued", "kind", string(kind), "stream", config.Redis.Stream, "message_id", id)
}

func init() {
	publishEventCmd.Flags().StringVar(&testEffect.TenantID, "tenant", "demo", "Tenant id")
	publishEventCmd.Flags().StringVar(&testEffect.EntityType, "entity-type", "contract", "Entity type")
	publishEventCmd.Flags().StringVar(&testEffect.EntityID, "entity-id", "cli-test", "Entity id")
	publishEventCmd.Flags().StringVar(&testEffect.InstanceID, "instance-id", "cli-test", "Workflow instance id")
	publishEventCmd.Flags().StringVar(&testEffect.State, "state", "active", "State the effect was emitted from")
	publishEventCmd.Flags().StringVar(&testEffect.RecipientID, "recipient", "alice", "Notification recipient")
	publishEventCmd.Flags().StringVar(&testEffect.Message, "message", "test notification", "Notification message")

	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
