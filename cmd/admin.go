package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/approval-workflow/internal"
	"github.com/frahmantamala/approval-workflow/internal/auth"
	"github.com/frahmantamala/approval-workflow/internal/rbac"
	rbacPostgres "github.com/frahmantamala/approval-workflow/internal/rbac/postgres"
	"github.com/frahmantamala/approval-workflow/internal/workflow"
	workflowPostgres "github.com/frahmantamala/approval-workflow/internal/workflow/postgres"
	"github.com/frahmantamala/approval-workflow/internal/workitem"
	workitemPostgres "github.com/frahmantamala/approval-workflow/internal/workitem/postgres"
	"github.com/frahmantamala/approval-workflow/pkg/logger"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Role catalog commands",
}

var catalogReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Validate the stored role catalog, or ask a running server to reload it",
	Long: `Without --server, load the role catalog from the database and check that it is consistent.
With --server, call the admin reload endpoint of a running instance.`,
	RunE: runCatalogReload,
}

var (
	reloadServer string
	reloadToken  string
)

type reloadResult struct {
	Roles int `json:"roles"`
}

type reloadFailure struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func runCatalogReload(cmd *cobra.Command, _ []string) error {
	if reloadServer != "" {
		return remoteCatalogReload(cmd.Context())
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	db, err := initDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	roles, err := rbacPostgres.NewRepository(db).LoadRoles(cmd.Context())
	if err != nil {
		return fmt.Errorf("load roles: %w", err)
	}
	snap, err := rbac.NewSnapshot(roles)
	if err != nil {
		return fmt.Errorf("stored catalog is invalid: %w", err)
	}
	for _, role := range snap.Roles() {
		fmt.Printf("%-12s rank=%d permissions=%d\n", role.ID, role.Rank, len(role.Permissions))
	}
	fmt.Printf("catalog ok: %d roles\n", len(snap.Roles()))
	return nil
}

func remoteCatalogReload(ctx context.Context) error {
	if reloadToken == "" {
		return fmt.Errorf("--token is required with --server")
	}

	var result reloadResult
	var failure reloadFailure
	resp, err := resty.New().
		SetTimeout(10*time.Second).
		SetBaseURL(strings.TrimRight(reloadServer, "/")).
		R().
		SetContext(ctx).
		SetAuthToken(reloadToken).
		SetResult(&result).
		SetError(&failure).
		Post("/api/v1/admin/catalog/reload")
	if err != nil {
		return fmt.Errorf("reload request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("reload rejected: status %d %s: %s", resp.StatusCode(), failure.Error.Code, failure.Error.Message)
	}
	fmt.Printf("server reloaded %d roles\n", result.Roles)
	return nil
}

var workItemsCmd = &cobra.Command{
	Use:   "workitems",
	Short: "Work item mirror commands",
}

var workItemsRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Re-project every workflow instance into the work item mirror",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gdb, err := initGorm(db)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}
		registry, err := workflow.NewDefaultRegistry()
		if err != nil {
			log.Fatalf("failed to build workflow registry: %v", err)
		}

		svc := workitem.NewService(workitemPostgres.NewRepository(gdb), logger.LoggerWrapper())
		count, err := svc.Rebuild(cmd.Context(), workflowPostgres.NewWorkItemSource(gdb, registry))
		if err != nil {
			log.Fatalf("rebuild stopped after %d items: %v", count, err)
		}
		fmt.Printf("Rebuilt %d work items\n", count)
	},
}

var (
	tokenActor  string
	tokenTenant string
	tokenTTL    time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for an actor",
	Long:  `Mint a signed bearer token for development. Identity comes from an upstream provider in production.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		ttl := tokenTTL
		if ttl <= 0 {
			ttl = cfg.Security.TokenDuration
		}

		tokens := auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.JWTIssuer, ttl)
		token, expiresAt, err := tokens.GenerateActorToken(internal.Actor{ID: tokenActor, TenantID: tokenTenant})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(auth.TokenResponse{
			AccessToken: token,
			ExpiresAt:   expiresAt,
			ActorID:     tokenActor,
			TenantID:    tokenTenant,
		})
	},
}

func init() {
	catalogReloadCmd.Flags().StringVar(&reloadServer, "server", "", "base URL of a running server, e.g. http://localhost:8080")
	catalogReloadCmd.Flags().StringVar(&reloadToken, "token", "", "bearer token of an actor holding roles:manage:all")
	catalogCmd.AddCommand(catalogReloadCmd)

	workItemsCmd.AddCommand(workItemsRebuildCmd)

	tokenCmd.Flags().StringVar(&tokenActor, "actor", "", "actor id (token subject)")
	tokenCmd.Flags().StringVar(&tokenTenant, "tenant", "", "tenant id")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (defaults to security.token_duration)")
	_ = tokenCmd.MarkFlagRequired("actor")
	_ = tokenCmd.MarkFlagRequired("tenant")

	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(workItemsCmd)
	rootCmd.AddCommand(tokenCmd)
}
