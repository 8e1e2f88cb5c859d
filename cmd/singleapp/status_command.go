package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"singleapp/internal/config"
	"singleapp/internal/directory"
	"singleapp/internal/singleton"
)

// serviceStatus is one row of `singleapp status`.
type serviceStatus struct {
	Service      string    `json:"service"`
	PID          int       `json:"pid"`
	Process      string    `json:"process,omitempty"`
	State        string    `json:"state"`
	Clients      []string  `json:"clients"`
	RegisteredAt time.Time `json:"registered_at"`
	Reachable    bool      `json:"reachable"`
}

const (
	stateStale       = "stale"
	stateUnreachable = "unreachable"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show services published in the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDirectory(func(cfg *config.Config, store *directory.Store) error {
				statuses, err := collectStatuses(cmd.Context(), cfg, store)
				if err != nil {
					return err
				}
				if jsonOutput {
					if statuses == nil {
						statuses = []serviceStatus{}
					}
					return writeJSON(cmd, statuses)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderStatuses(statuses, shouldColorize(cmd.OutOrStdout())))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// collectStatuses reads every registry row before probing, since a probe of a
// stale row purges it.
func collectStatuses(ctx context.Context, cfg *config.Config, store *directory.Store) ([]serviceStatus, error) {
	entries, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	timeout := cfg.Durations().RemoteCallTimeout

	var statuses []serviceStatus
	for _, entry := range entries {
		status := serviceStatus{
			Service:      entry.Name,
			PID:          entry.PID,
			Process:      entry.Process,
			State:        stateStale,
			RegisteredAt: entry.RegisteredAt,
		}
		if entry.Alive() {
			status.State = stateUnreachable
			if snap, ok := probe(ctx, store, entry.Name, timeout); ok {
				status.State = snap.State.String()
				status.Clients = snap.Clients
				status.Reachable = true
				if snap.Process != "" {
					status.Process = snap.Process
				}
			}
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func probe(ctx context.Context, store *directory.Store, name string, timeout time.Duration) (singleton.Snapshot, bool) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	remote, err := store.Lookup(callCtx, name)
	if err != nil || remote == nil {
		return singleton.Snapshot{}, false
	}
	defer remote.Close()
	snap, err := remote.Snapshot(callCtx)
	if err != nil {
		return singleton.Snapshot{}, false
	}
	return snap, true
}

func renderStatuses(statuses []serviceStatus, colorize bool) string {
	if len(statuses) == 0 {
		return renderStatusLine("Services", statusInfo, "none registered", colorize) + "\n"
	}

	rows := make([][]string, 0, len(statuses))
	reachable := 0
	for _, s := range statuses {
		if s.Reachable {
			reachable++
		}
		rows = append(rows, []string{
			s.Service,
			strconv.Itoa(s.PID),
			stateLabel(s.State),
			strconv.Itoa(len(s.Clients)),
			s.Process,
			s.RegisteredAt.Local().Format("2006-01-02 15:04:05"),
		})
	}

	var b strings.Builder
	b.WriteString(renderTable(
		[]string{"Service", "PID", "State", "Clients", "Process", "Registered"},
		rows,
		[]text.Align{text.AlignLeft, text.AlignRight, text.AlignLeft, text.AlignRight},
	))
	b.WriteString("\n")

	kind := statusOK
	switch {
	case reachable == 0:
		kind = statusError
	case reachable < len(statuses):
		kind = statusWarn
	}
	b.WriteString(renderStatusLine("Services", kind,
		fmt.Sprintf("%d of %d reachable", reachable, len(statuses)), colorize))
	b.WriteString("\n")
	return b.String()
}

var stateCaser = cases.Title(language.English)

// stateLabel turns "ui_starting" into "Ui Starting".
func stateLabel(state string) string {
	return stateCaser.String(strings.ReplaceAll(state, "_", " "))
}
