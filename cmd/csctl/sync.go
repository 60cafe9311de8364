package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/straye-as/success-api/internal/repository"
	"github.com/straye-as/success-api/internal/service"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Integration sync operations",
	}
	cmd.AddCommand(newSyncTriggerCmd())
	return cmd
}

func newSyncTriggerCmd() *cobra.Command {
	var tenant string

	cmd := &cobra.Command{
		Use:   "trigger <integration-id>",
		Short: "Ask an integration to push its data now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, err := operatorContext(tenant)
			if err != nil {
				return err
			}
			integrationID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid integration id %q: %w", args[0], err)
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			svc := service.NewIntegrationService(repository.NewIntegrationRepository(a.db), repository.NewExternalRecordRepository(a.db), a.cfg.Integrations, nil, nil, a.log)
			syncLog, err := svc.TriggerSync(cmd.Context(), tc, integrationID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), syncLog)
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant ID (required)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
