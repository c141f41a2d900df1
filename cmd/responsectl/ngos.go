package main

import (
	"context"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/thejenniferfang/disaster-response/internal/types"
)

func ngosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ngos",
		Short: "Query the NGO catalog",
	}
	cmd.AddCommand(ngosListCmd())
	cmd.AddCommand(ngosGetCmd())
	return cmd
}

func ngosListCmd() *cobra.Command {
	var (
		disasterType string
		region       string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active NGOs, optionally filtered by capability or coverage",
		Long: `List active NGOs from the catalog.

Examples:
  # All active NGOs
  responsectl ngos list

  # NGOs that handle fires and cover a region
  responsectl ngos list --type fire --region Attica,GR`,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if disasterType != "" {
				q.Set("type", disasterType)
			}
			if region != "" {
				q.Set("region", region)
			}

			var result NGOListResult
			if err := getClient().get(context.Background(), "/v1/ngos", q, &result); err != nil {
				return err
			}
			return outputResult(result, outputFmt)
		},
	}
	cmd.Flags().StringVar(&disasterType, "type", "", "Filter by handled disaster type")
	cmd.Flags().StringVar(&region, "region", "", "Filter by covered region key")
	return cmd
}

func ngosGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <ngo-id>",
		Short: "Show one NGO",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var n types.NGO
			if err := getClient().get(context.Background(), "/v1/ngos/"+args[0], nil, &n); err != nil {
				return err
			}
			return outputResult(NGOResult{NGO: n}, outputFmt)
		},
	}
}
