package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/approval-workflow/internal/rbac"
	rbacPostgres "github.com/frahmantamala/approval-workflow/internal/rbac/postgres"
)

var seedTenant string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with the role catalog and demo actors",
	Long:  `Persist the built-in role catalog and assign roles to a handful of demo actors for development and testing purposes.`,
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

		ctx := context.Background()
		repo := rbacPostgres.NewRepository(db)

		roles := rbac.DefaultRoles()
		if err := repo.SaveCatalog(ctx, roles); err != nil {
			log.Fatalf("failed to save role catalog: %v", err)
		}
		fmt.Printf("Seeded %d roles\n", len(roles))

		if seedTenant == "" {
			return
		}

		demo := []struct {
			Actor string
			Role  string
		}{
			{"alice", rbac.RoleEmployee},
			{"prom", rbac.RolePromoter},
			{"boss", rbac.RoleEmployer},
			{"mgr", rbac.RoleManager},
			{"adm", rbac.RoleAdmin},
		}

		now := time.Now().UTC()
		for _, d := range demo {
			if err := repo.Assign(ctx, d.Actor, d.Role, seedTenant, now); err != nil {
				log.Fatalf("failed to assign %s to %s: %v", d.Role, d.Actor, err)
			}
			fmt.Printf("Assigned %s to %s in tenant %s\n", d.Role, d.Actor, seedTenant)
		}
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedTenant, "tenant", "demo", "tenant to assign demo actors in; empty seeds the catalog only")
}
