package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"escucha/internal/backend"
	"escucha/internal/config"
	"escucha/internal/notifications"
	"escucha/internal/storage"
	"escucha/internal/textutil"
	"escucha/internal/transcripts"
)

const previewWidth = 48

func newTranscriptsCommand(ctx *commandContext) *cobra.Command {
	transcriptsCmd := &cobra.Command{
		Use:   "transcripts",
		Short: "Manage captured transcript sessions",
	}

	transcriptsCmd.AddCommand(newTranscriptsListCommand(ctx))
	transcriptsCmd.AddCommand(newTranscriptsShowCommand(ctx))
	transcriptsCmd.AddCommand(newTranscriptsEditCommand(ctx))
	transcriptsCmd.AddCommand(newTranscriptsRiskCommand(ctx))
	transcriptsCmd.AddCommand(newTranscriptsDeleteCommand(ctx))

	return transcriptsCmd
}

func newTranscriptsListCommand(ctx *commandContext) *cobra.Command {
	var riskFilter string

	cmd := &cobra.Command{
		Use:   "list <parent-session-id>",
		Short: "List transcript sessions for a parent session, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(func(cfg *config.Config, db *storage.DB) error {
				store := transcripts.NewStore(db)
				sessions, err := store.ListByParent(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				sessions = transcripts.FilterByRisk(sessions, riskFilter)

				out := cmd.OutOrStdout()
				if len(sessions) == 0 {
					fmt.Fprintln(out, "No transcript sessions found")
					return nil
				}

				colorize := shouldColorize(out)
				rows := make([][]string, 0, len(sessions))
				for _, session := range sessions {
					rows = append(rows, []string{
						shortID(session.ID),
						riskBadge(session.RiskLevel, colorize),
						string(session.Status),
						fmt.Sprintf("%d", session.WordCount),
						formatDuration(session.Duration),
						formatTimestamp(session.CreatedAt),
						textutil.Truncate(textutil.Collapse(session.FullText), previewWidth),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "RISK", "STATUS", "WORDS", "DURATION", "CREATED", "PREVIEW"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&riskFilter, "risk", "all", "Filter by risk level (all, green, yellow, red)")
	return cmd
}

func newTranscriptsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a transcript session in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(func(cfg *config.Config, db *storage.DB) error {
				store := transcripts.NewStore(db)
				session, err := store.GetByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintf(out, "ID: %s\n", session.ID)
				fmt.Fprintf(out, "Parent session: %s\n", session.ParentSessionID)
				fmt.Fprintf(out, "Status: %s\n", session.Status)
				fmt.Fprintf(out, "Risk: %s\n", riskBadge(session.RiskLevel, colorize))
				fmt.Fprintf(out, "Duration: %s  Words: %d  Speakers: %d\n",
					formatDuration(session.Duration), session.WordCount, session.SpeakerCount)
				if session.DetectedLanguage != "" {
					fmt.Fprintf(out, "Language: %s\n", session.DetectedLanguage)
				}
				fmt.Fprintf(out, "Captured: %s - %s\n",
					formatTimestamp(session.StartedAt), formatTimestamp(session.EndedAt))
				fmt.Fprintln(out)
				fmt.Fprintln(out, session.FullText)

				if len(session.Segments) > 0 {
					rows := make([][]string, 0, len(session.Segments))
					for _, segment := range session.Segments {
						rows = append(rows, []string{
							fmt.Sprintf("%.1fs", segment.StartOffsetSeconds),
							fmt.Sprintf("%.1fs", segment.EndOffsetSeconds),
							segment.SpeakerLabel,
							textutil.Truncate(segment.Text, previewWidth),
						})
					}
					fmt.Fprintln(out)
					fmt.Fprintln(out, renderTable(
						[]string{"START", "END", "SPEAKER", "TEXT"},
						rows,
						[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft},
					))
				}
				return nil
			})
		},
	}
}

func newTranscriptsEditCommand(ctx *commandContext) *cobra.Command {
	var newText string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Replace a transcript session's full text",
		Long: "Replace the full text of a transcript session. The risk level and\n" +
			"segment history are left untouched.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(func(cfg *config.Config, db *storage.DB) error {
				store := transcripts.NewStore(db)
				session, err := store.GetByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				session.FullText = newText
				session.WordCount = textutil.WordCount(newText)
				if err := store.Update(cmd.Context(), session); err != nil {
					return err
				}

				logger := ctx.newLogger(cfg)
				syncer := backend.NewConfiguredSyncer(cfg, logger)
				if err := syncer.PushTranscriptSession(cmd.Context(), session); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: backend sync failed: %v\n", err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Updated transcript %s (%d words)\n",
					shortID(session.ID), session.WordCount)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&newText, "text", "t", "", "Replacement full text")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func newTranscriptsRiskCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "risk <id> <green|yellow|red>",
		Short: "Change a transcript session's risk semaphore",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := transcripts.ParseRiskLevel(args[1])
			if err != nil {
				return err
			}
			return ctx.withDB(func(cfg *config.Config, db *storage.DB) error {
				store := transcripts.NewStore(db)
				if err := store.UpdateRisk(cmd.Context(), args[0], level); err != nil {
					return err
				}
				session, err := store.GetByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				logger := ctx.newLogger(cfg)
				syncer := backend.NewConfiguredSyncer(cfg, logger)
				if err := syncer.PushTranscriptSession(cmd.Context(), session); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: backend sync failed: %v\n", err)
				}
				notifier := notifications.NewService(cfg)
				if level == transcripts.RiskRed {
					if err := notifier.NotifyRiskEscalated(cmd.Context(), session.ParentSessionID, string(level)); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "Warning: notification failed: %v\n", err)
					}
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Risk for %s set to %s\n", shortID(session.ID), level)
				return nil
			})
		},
	}
}

func newTranscriptsDeleteCommand(ctx *commandContext) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transcript session (irreversible)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed && !promptConfirm(cmd, fmt.Sprintf("Delete transcript session %s? This cannot be undone.", args[0])) {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
				return nil
			}
			return ctx.withDB(func(cfg *config.Config, db *storage.DB) error {
				store := transcripts.NewStore(db)
				if err := store.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}

				logger := ctx.newLogger(cfg)
				syncer := backend.NewConfiguredSyncer(cfg, logger)
				if err := syncer.DeleteTranscriptSession(cmd.Context(), args[0]); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: backend sync failed: %v\n", err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Deleted transcript %s\n", shortID(args[0]))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&confirmed, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func promptConfirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	var answer string
	if _, err := fmt.Fscanln(cmd.InOrStdin(), &answer); err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
