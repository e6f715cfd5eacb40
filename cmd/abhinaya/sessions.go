package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/abhinaya/internal/expression"
	"github.com/ayusman/abhinaya/internal/store"
)

func newSessionsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions and their expression counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openJournal(cmd, opts)
			if err != nil {
				return err
			}
			defer st.Close()

			return listSessions(cmd.OutOrStdout(), st)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "delete ID...",
		Short: "Delete sessions and their recorded expressions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openJournal(cmd, opts)
			if err != nil {
				return err
			}
			defer st.Close()

			for _, id := range args {
				if err := st.Sessions().Delete(id); err != nil {
					if errors.Is(err, store.ErrNotFound) {
						return fmt.Errorf("session %s not found", id)
					}
					return fmt.Errorf("delete session %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", id)
			}
			return nil
		},
	})

	return cmd
}

// openJournal opens the journal named by --journal or the config file.
func openJournal(cmd *cobra.Command, opts *options) (*store.Store, error) {
	path := opts.journal
	if path == "" && opts.configPath != "" {
		cfg, err := opts.resolve(cmd)
		if err != nil {
			return nil, err
		}
		path = cfg.Journal
	}
	if path == "" {
		return nil, errors.New("no journal configured, pass --journal")
	}

	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return st, nil
}

func listSessions(out io.Writer, st *store.Store) error {
	sessions, err := st.Sessions().List()
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tDURATION\tFRAMES\tFACES\tEXPRESSIONS")
	fmt.Fprintln(w, "--\t-------\t--------\t------\t-----\t-----------")

	for _, sess := range sessions {
		counts, err := st.Expressions().CountByLabel(sess.ID)
		if err != nil {
			return fmt.Errorf("count expressions for %s: %w", sess.ID, err)
		}

		duration := "-"
		if sess.EndedAt != nil {
			duration = sess.EndedAt.Sub(sess.StartedAt).Round(time.Second).String()
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			sess.ID,
			sess.StartedAt.Local().Format("2006-01-02 15:04"),
			duration,
			sess.Frames,
			sess.Detections,
			formatCounts(counts),
		)
	}
	return w.Flush()
}

func formatCounts(counts map[expression.Label]int) string {
	var parts []string
	for _, label := range expression.Labels {
		if n := counts[label]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", label, n))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}
