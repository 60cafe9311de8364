package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/straye-as/success-api/internal/datawarehouse"
	"github.com/straye-as/success-api/internal/jobs"
	"github.com/straye-as/success-api/internal/repository"
	"github.com/straye-as/success-api/internal/service"
)

func newHealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Health score maintenance",
	}
	cmd.AddCommand(newHealthRecomputeCmd())
	return cmd
}

func newHealthRecomputeCmd() *cobra.Command {
	var tenant string

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Score every warehouse-mapped account of a tenant now",
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, err := operatorContext(tenant)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			dw, err := datawarehouse.NewClient(&a.cfg.DataWarehouse, a.log)
			if err != nil {
				return fmt.Errorf("failed to connect to data warehouse: %w", err)
			}
			if dw == nil {
				return fmt.Errorf("data warehouse is not configured")
			}
			defer dw.Close()

			accountRepo := repository.NewAccountRepository(a.db)
			alerts := service.NewAlertService(repository.NewAlertRepository(a.db), nil, nil, a.log)
			health := service.NewHealthScoreService(
				accountRepo,
				repository.NewHealthScoreRepository(a.db),
				a.weightService(),
				alerts,
				nil, nil, a.log, a.db,
			)

			job := jobs.NewHealthRecomputeJob(accountRepo, dw, health, a.cfg.Scoring.DefaultStage,
				time.Duration(a.cfg.DataWarehouse.UsageWindowDays)*24*time.Hour, a.log)

			result, err := job.Recompute(cmd.Context(), &tc.TenantID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant ID (required)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
