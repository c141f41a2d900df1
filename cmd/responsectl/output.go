package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/thejenniferfang/disaster-response/internal/pipeline"
	"github.com/thejenniferfang/disaster-response/internal/types"
)

// Result types mirroring the API response envelopes.

// EventListResult is the result of `events list`.
type EventListResult struct {
	Items []types.Event `json:"items"`
}

// EventResult wraps one event for output.
type EventResult struct {
	Event types.Event `json:"event"`
}

// MatchListResult is the result of `events matches`.
type MatchListResult struct {
	EventID string        `json:"event_id"`
	Items   []types.Match `json:"items"`
}

// AckResult is the result of `events ack`.
type AckResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// NGOListResult is the result of `ngos list`.
type NGOListResult struct {
	Items []types.NGO `json:"items"`
}

// NGOResult wraps one NGO for output.
type NGOResult struct {
	NGO types.NGO `json:"ngo"`
}

// SignalResult is the result of `signal`.
type SignalResult struct {
	SignalID string          `json:"signal_id"`
	Result   pipeline.Result `json:"result"`
}

// outputResult outputs the result in the specified format.
func outputResult(result any, format string) error {
	switch format {
	case "json":
		return outputJSON(result)
	default:
		return outputTable(result)
	}
}

func outputJSON(result any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputTable(result any) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	switch r := result.(type) {
	case EventListResult:
		return outputEventsTable(w, r.Items)
	case EventResult:
		return outputEventTable(w, r.Event)
	case MatchListResult:
		return outputMatchesTable(w, r)
	case AckResult:
		fmt.Fprintf(w, "EVENT\t%s\nSTATUS\t%s\n", r.ID, r.Status)
		return nil
	case NGOListResult:
		return outputNGOsTable(w, r.Items)
	case NGOResult:
		return outputNGOTable(w, r.NGO)
	case SignalResult:
		return outputSignalTable(w, r)
	default:
		// Fall back to JSON for unknown types
		return outputJSON(result)
	}
}

func outputEventsTable(w *tabwriter.Writer, events []types.Event) error {
	fmt.Fprintln(w, "ID\tTYPE\tREGION\tSEVERITY\tSTATUS\tSIGNALS\tFIRST\tLAST")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			e.ID, e.DisasterType, e.Region, e.Severity, e.Status,
			len(e.SupportingSignalIDs),
			e.FirstObservedAt.Format(time.RFC3339),
			e.LastObservedAt.Format(time.RFC3339),
		)
	}
	return nil
}

func outputEventTable(w *tabwriter.Writer, e types.Event) error {
	fmt.Fprintf(w, "ID\t%s\n", e.ID)
	fmt.Fprintf(w, "TYPE\t%s\n", e.DisasterType)
	fmt.Fprintf(w, "REGION\t%s\n", e.Region)
	fmt.Fprintf(w, "SEVERITY\t%s\n", e.Severity)
	fmt.Fprintf(w, "STATUS\t%s\n", e.Status)
	fmt.Fprintf(w, "FIRST OBSERVED\t%s\n", e.FirstObservedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "LAST OBSERVED\t%s\n", e.LastObservedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "SIGNALS\t%s\n", strings.Join(e.SupportingSignalIDs, ", "))
	return nil
}

func outputMatchesTable(w *tabwriter.Writer, r MatchListResult) error {
	fmt.Fprintf(w, "EVENT\t%s\n\n", r.EventID)
	fmt.Fprintln(w, "NGO\tSCORE\tREASONS")
	for _, m := range r.Items {
		fmt.Fprintf(w, "%s\t%.3f\t%s\n", m.NGOID, m.RelevanceScore, strings.Join(m.Reasons, "; "))
	}
	return nil
}

func outputNGOsTable(w *tabwriter.Writer, ngos []types.NGO) error {
	fmt.Fprintln(w, "ID\tNAME\tAID TYPES\tCOVERAGE\tCAPACITY")
	for _, n := range ngos {
		aidTypes := make([]string, 0, len(n.AidTypes))
		for _, t := range n.AidTypes {
			aidTypes = append(aidTypes, string(t))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\n",
			n.ID, n.Name, strings.Join(aidTypes, ","), strings.Join(n.CoverageRegions, ","), n.CapacityWeight)
	}
	return nil
}

func outputNGOTable(w *tabwriter.Writer, n types.NGO) error {
	aidTypes := make([]string, 0, len(n.AidTypes))
	for _, t := range n.AidTypes {
		aidTypes = append(aidTypes, string(t))
	}
	fmt.Fprintf(w, "ID\t%s\n", n.ID)
	fmt.Fprintf(w, "NAME\t%s\n", n.Name)
	fmt.Fprintf(w, "AID TYPES\t%s\n", strings.Join(aidTypes, ", "))
	fmt.Fprintf(w, "COVERAGE\t%s\n", strings.Join(n.CoverageRegions, ", "))
	fmt.Fprintf(w, "CAPACITY\t%.2f\n", n.CapacityWeight)
	fmt.Fprintf(w, "CONTACT\t%s\n", n.ContactEmail)
	fmt.Fprintf(w, "ACTIVE\t%t\n", n.Active)
	return nil
}

func outputSignalTable(w *tabwriter.Writer, r SignalResult) error {
	fmt.Fprintf(w, "SIGNAL\t%s\n", r.SignalID)
	if r.Result.Event == nil {
		fmt.Fprintln(w, "OUTCOME\tstored (awaiting corroboration)")
		return nil
	}
	fmt.Fprintf(w, "OUTCOME\tevent %s (%s)\n", r.Result.Event.ID, r.Result.Event.Status)
	fmt.Fprintf(w, "MATCHES\t%d\n", len(r.Result.Matches))
	return nil
}
