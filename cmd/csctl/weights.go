package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/straye-as/success-api/internal/scoring"
	"gopkg.in/yaml.v3"
)

// weightsFile is the YAML layout accepted by "weights import":
//
//	stages:
//	  onboarding:
//	    usage_frequency: 0.5
//	    breadth: 0.3
//	    depth: 0.2
type weightsFile struct {
	Stages map[string]map[string]float64 `yaml:"stages"`
}

// parseWeightsFile decodes and validates every stage before anything is stored
func parseWeightsFile(r io.Reader, strict bool) (map[string]scoring.Weights, error) {
	var file weightsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse weights file: %w", err)
	}
	if len(file.Stages) == 0 {
		return nil, fmt.Errorf("weights file defines no stages")
	}

	out := make(map[string]scoring.Weights, len(file.Stages))
	for stage, weights := range file.Stages {
		if stage == "" {
			return nil, fmt.Errorf("weights file contains an empty stage name")
		}
		if err := scoring.ValidateWeights(weights, strict); err != nil {
			return nil, fmt.Errorf("stage %s: %w", stage, err)
		}
		out[stage] = weights
	}
	return out, nil
}

func sortedStages(stages map[string]scoring.Weights) []string {
	names := make([]string, 0, len(stages))
	for name := range stages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newWeightsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Manage per-stage scoring weights",
	}
	cmd.AddCommand(newWeightsImportCmd(), newWeightsShowCmd())
	return cmd
}

func newWeightsImportCmd() *cobra.Command {
	var (
		file   string
		tenant string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import stage weights from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, err := operatorContext(tenant)
			if err != nil {
				return err
			}

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", file, err)
			}
			defer f.Close()

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			stages, err := parseWeightsFile(f, a.cfg.Scoring.EnforceWeightSum)
			if err != nil {
				return err
			}

			svc := a.weightService()
			for _, stage := range sortedStages(stages) {
				if dryRun {
					fmt.Fprintf(cmd.OutOrStdout(), "would set %s: %v\n", stage, stages[stage])
					continue
				}
				if _, err := svc.SetWeights(cmd.Context(), tc, stage, stages[stage]); err != nil {
					return fmt.Errorf("stage %s: %w", stage, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "set %s\n", stage)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML weights file (required)")
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant ID (required)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate and print without storing")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func newWeightsShowCmd() *cobra.Command {
	var (
		tenant string
		stage  string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the weights of one stage, or of every defined stage",
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

			svc := a.weightService()
			if stage != "" {
				weights, err := svc.GetWeights(cmd.Context(), tc, stage)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), weights)
			}

			all, err := svc.ListWeights(cmd.Context(), tc)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), all)
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant ID (required)")
	cmd.Flags().StringVar(&stage, "stage", "", "Stage name; defaults to all stages")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
