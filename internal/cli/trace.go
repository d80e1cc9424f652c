package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/signupflow/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	Signal   string // optional - filter to one signal
}

// TraceEvent is one logged emission in the timeline.
type TraceEvent struct {
	Seq    int64  `json:"seq"`
	Signal string `json:"signal"`
	Value  string `json:"value"`
}

// TraceResult holds a session's timeline.
type TraceResult struct {
	Session  string       `json:"session"`
	Timeline []TraceEvent `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for a session.
type TraceStats struct {
	TotalEvents int  `json:"total_events"`
	Inputs      int  `json:"inputs"`
	Outputs     int  `json:"outputs"`
	Submits     int  `json:"submits"`
	SignedIn    bool `json:"signed_in"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect logged sessions",
		Long: `Inspect the emission log written by "run --db".

Without --session, lists every logged session with its emission count.
With --session, prints that session's emissions in order.

Examples:
  signupflow trace --db ./signup.db
  signupflow trace --db ./signup.db --session 0192c3e4-...
  signupflow trace --db ./signup.db --session 0192c3e4-... --signal signup_enabled
  signupflow trace --db ./signup.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id to print")
	cmd.Flags().StringVar(&opts.Signal, "signal", "", "only show emissions of this signal")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.Session == "" {
		return listSessions(ctx, st, opts, cmd)
	}

	emissions, err := st.ReadSession(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	if len(emissions) == 0 {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		_ = formatter.Error(CodeSessionNotFound, fmt.Sprintf("no emissions found for session: %s", opts.Session), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("session not found: %s", opts.Session))
	}

	result := buildTraceResult(opts.Session, emissions, opts.Signal)
	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd, result)
}

func listSessions(ctx context.Context, st *store.Store, opts *TraceOptions, cmd *cobra.Command) error {
	sessions, err := st.ListSessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
		return formatter.Success(sessions)
	}

	w := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions logged.")
		return nil
	}
	fmt.Fprintf(w, "%-38s %9s  %s\n", "SESSION", "EMISSIONS", "SEQ")
	for _, s := range sessions {
		fmt.Fprintf(w, "%-38s %9d  %d-%d\n", s.ID, s.Emissions, s.FirstSeq, s.LastSeq)
	}
	return nil
}

// buildTraceResult turns logged emissions into a timeline. Stats always
// cover the whole session; signalFilter only narrows the timeline.
func buildTraceResult(session string, emissions []store.Emission, signalFilter string) TraceResult {
	result := TraceResult{Session: session, Timeline: []TraceEvent{}}

	for _, em := range emissions {
		if strings.HasPrefix(em.Signal, "input.") {
			result.Stats.Inputs++
			if em.Signal == "input.submit" {
				result.Stats.Submits++
			}
		} else {
			result.Stats.Outputs++
		}
		if em.Signal == "signed_in" {
			result.Stats.SignedIn = em.Value == "true"
		}

		if signalFilter != "" && em.Signal != signalFilter {
			continue
		}
		result.Timeline = append(result.Timeline, TraceEvent{
			Seq:    em.Seq,
			Signal: em.Signal,
			Value:  em.Value,
		})
	}
	result.Stats.TotalEvents = len(emissions)
	return result
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	response := CLIResponse{
		Status:  "ok",
		Data:    result,
		Session: result.Session,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Session: %s\n\n", result.Session)
	fmt.Fprintln(w, "Timeline:")
	for _, ev := range result.Timeline {
		fmt.Fprintf(w, "  [%d] %-28s %s\n", ev.Seq, ev.Signal, ev.Value)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Stats: %d emissions (%d inputs, %d outputs), %d submits, signed in: %t\n",
		result.Stats.TotalEvents, result.Stats.Inputs, result.Stats.Outputs,
		result.Stats.Submits, result.Stats.SignedIn)
	return nil
}
