package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/thejenniferfang/disaster-response/internal/pipeline"
	"github.com/thejenniferfang/disaster-response/internal/types"
)

func signalCmd() *cobra.Command {
	var (
		id           string
		sourceRef    string
		disasterType string
		region       string
		severity     string
		observedAt   string
	)
	cmd := &cobra.Command{
		Use:   "signal",
		Short: "Submit one signal for correlation",
		Long: `Submit a raw disaster signal to the service.

Useful for manual testing and for replaying observations from scripts.

Examples:
  responsectl signal --type flood --region Sindh,PK --severity high
  responsectl signal --type fire --region Attica,GR --observed-at 2025-06-01T12:00:00Z`,
		RunE: func(cmd *cobra.Command, args []string) error {
			observed := time.Now().UTC()
			if observedAt != "" {
				parsed, err := time.Parse(time.RFC3339, observedAt)
				if err != nil {
					return err
				}
				observed = parsed
			}
			if id == "" {
				id = uuid.NewString()
			}

			signal := types.Signal{
				ID:           id,
				SourceRef:    sourceRef,
				DisasterType: types.DisasterType(disasterType),
				Region:       region,
				SeverityHint: types.Severity(severity),
				ObservedAt:   observed,
				CreatedAt:    time.Now().UTC(),
			}

			var result pipeline.Result
			if err := getClient().post(context.Background(), "/v1/signals", signal, &result); err != nil {
				return err
			}
			return outputResult(SignalResult{SignalID: id, Result: result}, outputFmt)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Signal id (generated when omitted)")
	cmd.Flags().StringVar(&sourceRef, "source-ref", "responsectl", "Reference to the raw source")
	cmd.Flags().StringVar(&disasterType, "type", "", "Disaster type (required)")
	cmd.Flags().StringVar(&region, "region", "", "Region key (required)")
	cmd.Flags().StringVar(&severity, "severity", "", "Severity hint: low, medium, high")
	cmd.Flags().StringVar(&observedAt, "observed-at", "", "Observation time (RFC3339, default now)")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("region")
	return cmd
}
