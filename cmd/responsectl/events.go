package main

import (
	"context"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/thejenniferfang/disaster-response/internal/types"
)

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Query correlated disaster events",
	}
	cmd.AddCommand(eventsListCmd())
	cmd.AddCommand(eventsGetCmd())
	cmd.AddCommand(eventsMatchesCmd())
	cmd.AddCommand(eventsAckCmd())
	return cmd
}

func eventsListCmd() *cobra.Command {
	var (
		disasterType string
		region       string
		status       string
		limit        int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events, optionally filtered by type, region, or status",
		Long: `List correlated disaster events.

Examples:
  # All events
  responsectl events list

  # Open flood events in one region
  responsectl events list --type flood --region Sindh,PK --status active`,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if disasterType != "" {
				q.Set("type", disasterType)
			}
			if region != "" {
				q.Set("region", region)
			}
			if status != "" {
				q.Set("status", status)
			}
			if limit > 0 {
				q.Set("limit", fmt.Sprint(limit))
			}

			var result EventListResult
			if err := getClient().get(context.Background(), "/v1/events", q, &result); err != nil {
				return err
			}
			return outputResult(result, outputFmt)
		},
	}
	cmd.Flags().StringVar(&disasterType, "type", "", "Filter by disaster type")
	cmd.Flags().StringVar(&region, "region", "", "Filter by region key")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status: candidate, active, notified, stale")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of events to return")
	return cmd
}

func eventsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <event-id>",
		Short: "Show one event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var e types.Event
			if err := getClient().get(context.Background(), "/v1/events/"+args[0], nil, &e); err != nil {
				return err
			}
			return outputResult(EventResult{Event: e}, outputFmt)
		},
	}
}

func eventsMatchesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "matches <event-id>",
		Short: "Show the ranked NGO matches for an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result MatchListResult
			if err := getClient().get(context.Background(), "/v1/events/"+args[0]+"/matches", nil, &result); err != nil {
				return err
			}
			result.EventID = args[0]
			return outputResult(result, outputFmt)
		},
	}
}

func eventsAckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ack <event-id>",
		Short: "Acknowledge that notifications for an event were delivered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result AckResult
			if err := getClient().post(context.Background(), "/v1/events/"+args[0]+"/ack", nil, &result); err != nil {
				return err
			}
			return outputResult(result, outputFmt)
		},
	}
}
