package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kitbuilder587/travel-insurance-bot/internal/domain"
	"github.com/kitbuilder587/travel-insurance-bot/internal/repository"
	"github.com/kitbuilder587/travel-insurance-bot/internal/service"
)

type store struct {
	repo    repository.ProfileRepository
	migrate func(ctx context.Context) (int64, error)
	close   func()
}

type openFunc func(ctx context.Context) (*store, error)

func newRootCmd(open openFunc) *cobra.Command {
	var timeout time.Duration

	root := &cobra.Command{
		Use:           "profilectl",
		Short:         "Inspect and maintain trip profiles",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Timeout for a single command")

	// withEngine открывает хранилище на время одной команды
	withEngine := func(cmd *cobra.Command, fn func(ctx context.Context, s *store, e *service.ProfileEngine) error) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		s, err := open(ctx)
		if err != nil {
			return err
		}
		defer s.close()

		return fn(ctx, s, service.NewProfileEngine(s.repo, nil, nil))
	}

	root.AddCommand(
		newMigrateCmd(withEngine),
		newShowCmd(withEngine),
		newMissingCmd(withEngine),
		newNextCmd(withEngine),
		newListCmd(withEngine),
		newResetCmd(withEngine),
	)
	return root
}

type runner func(cmd *cobra.Command, fn func(ctx context.Context, s *store, e *service.ProfileEngine) error) error

func newMigrateCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s *store, _ *service.ProfileEngine) error {
				version, err := s.migrate(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
				return nil
			})
		},
	}
}

func newShowCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a profile as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, _ *store, e *service.ProfileEngine) error {
				p, err := e.Get(ctx, args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			})
		},
	}
}

func newMissingCmd(run runner) *cobra.Command {
	var stageName string

	cmd := &cobra.Command{
		Use:   "missing <id>",
		Short: "List fields missing for a stage (default: the next stage)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var stage domain.Stage
			if stageName != "" {
				parsed, err := domain.ParseStage(stageName)
				if err != nil {
					return err
				}
				stage = parsed
			}

			return run(cmd, func(ctx context.Context, _ *store, e *service.ProfileEngine) error {
				if stage == "" {
					next, err := e.NextStage(ctx, args[0])
					if err != nil {
						return err
					}
					stage = next
				}
				missing, err := e.MissingFields(ctx, args[0], stage)
				if err != nil {
					return err
				}
				printMissing(cmd.OutOrStdout(), stage, missing)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&stageName, "stage", "", "Stage name, e.g. PERSONAL_INFO")
	return cmd
}

func newNextCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "next <id>",
		Short: "Print the next stage and what it still needs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, _ *store, e *service.ProfileEngine) error {
				report, err := e.StageReport(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, st := range report {
					fmt.Fprintf(out, "%-15s %s\n", st.Stage, stageState(st))
				}

				next, err := e.NextStage(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(out)
				if next == domain.StageDone {
					fmt.Fprintln(out, "next: DONE")
					return nil
				}
				missing, err := e.MissingFields(ctx, args[0], next)
				if err != nil {
					return err
				}
				printMissing(out, next, missing)
				return nil
			})
		},
	}
}

func newListCmd(run runner) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recently updated profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			return run(cmd, func(ctx context.Context, _ *store, e *service.ProfileEngine) error {
				list, err := e.List(ctx, limit)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNEXT STAGE\tUPDATED")
				for _, p := range list {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.NextStage, p.UpdatedAt.UTC().Format(time.RFC3339))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of profiles")
	return cmd
}

func newResetCmd(run runner) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset <id>",
		Short: "Delete a profile so the user starts over",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset %q without --yes", args[0])
			}
			return run(cmd, func(ctx context.Context, _ *store, e *service.ProfileEngine) error {
				if err := e.Reset(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "profile %s reset\n", strings.TrimSpace(args[0]))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}

func printMissing(w io.Writer, stage domain.Stage, missing []domain.FieldDescriptor) {
	if len(missing) == 0 {
		fmt.Fprintf(w, "%s: nothing missing\n", stage)
		return
	}
	fmt.Fprintf(w, "%s: %d missing\n", stage, len(missing))
	for _, f := range missing {
		fmt.Fprintf(w, "  %-28s %s\n", f.Path, f.Label)
	}
}

func stageState(st domain.StageStatus) string {
	switch {
	case st.Complete:
		return "complete"
	case st.Unlocked:
		return "open"
	default:
		return "locked"
	}
}
