package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"escucha/internal/backend"
	"escucha/internal/config"
	"escucha/internal/conversion"
	"escucha/internal/notes"
	"escucha/internal/notifications"
	"escucha/internal/services"
	"escucha/internal/storage"
	"escucha/internal/textutil"
)

func newNotesCommand(ctx *commandContext) *cobra.Command {
	notesCmd := &cobra.Command{
		Use:   "notes",
		Short: "Manage quick notes taken during live sessions",
	}

	notesCmd.AddCommand(newNotesAddCommand(ctx))
	notesCmd.AddCommand(newNotesListCommand(ctx))
	notesCmd.AddCommand(newNotesRemoveCommand(ctx))
	notesCmd.AddCommand(newNotesConvertCommand(ctx))

	return notesCmd
}

func newNotesAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <parent-session-id> <content...>",
		Short: "Append a quick note to a session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(func(cfg *config.Config, db *storage.DB) error {
				logger := ctx.newLogger(cfg)
				journal := notes.NewJournal(db, logger, nil)
				note, err := journal.Append(cmd.Context(), args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}

				syncer := backend.NewConfiguredSyncer(cfg, logger)
				if err := syncer.PushNote(cmd.Context(), note); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: backend sync failed: %v\n", err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Added note %s\n", note.ID)
				return nil
			})
		},
	}
}

func newNotesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <parent-session-id>",
		Short: "List a session's quick notes, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(func(cfg *config.Config, db *storage.DB) error {
				journal := notes.NewJournal(db, ctx.newLogger(cfg), nil)
				listed, err := journal.ListByParent(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(listed) == 0 {
					fmt.Fprintln(out, "No quick notes found")
					return nil
				}

				rows := make([][]string, 0, len(listed))
				for _, note := range listed {
					converted := "-"
					if note.Converted() {
						converted = fmt.Sprintf("%s (%s)", note.ConvertedKind, note.ConvertedArtifactID)
					}
					rows = append(rows, []string{
						shortID(note.ID),
						formatTimestamp(note.CreatedAt),
						converted,
						textutil.Truncate(textutil.Collapse(note.Content), previewWidth),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "CREATED", "CONVERTED", "CONTENT"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newNotesRemoveCommand(ctx *commandContext) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a quick note (requires confirmation)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(func(cfg *config.Config, db *storage.DB) error {
				journal := notes.NewJournal(db, ctx.newLogger(cfg), nil)
				if err := journal.RequestRemove(cmd.Context(), args[0]); err != nil {
					return err
				}
				if !confirmed && !promptConfirm(cmd, fmt.Sprintf("Remove note %s? This cannot be undone.", args[0])) {
					journal.CancelRemove(args[0])
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
					return nil
				}
				if err := journal.ConfirmRemove(cmd.Context(), args[0]); err != nil {
					return err
				}

				syncer := backend.NewConfiguredSyncer(cfg, ctx.newLogger(cfg))
				if err := syncer.DeleteNote(cmd.Context(), args[0]); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: backend sync failed: %v\n", err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Removed note %s\n", shortID(args[0]))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&confirmed, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newNotesConvertCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string
	var category string
	var participantID string

	cmd := &cobra.Command{
		Use:   "convert <note-id>",
		Short: "Convert a quick note into a pain-point or profiling artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var kind conversion.Kind
			switch strings.ToLower(strings.TrimSpace(kindFlag)) {
			case "pain-point", "pain_point", "painpoint":
				kind = conversion.KindPainPoint
			case "profiling":
				kind = conversion.KindProfiling
			default:
				return services.Wrap(services.ErrValidation, "cli", "notes-convert",
					"kind must be pain-point or profiling", nil)
			}

			return ctx.withDB(func(cfg *config.Config, db *storage.DB) error {
				if !cfg.Backend.Enabled {
					return services.Wrap(services.ErrValidation, "cli", "notes-convert",
						"artifact conversion requires the backend to be enabled in config", nil)
				}

				logger := ctx.newLogger(cfg)
				journal := notes.NewJournal(db, logger, nil)
				note, err := journal.GetByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if note.Converted() {
					return services.Wrap(notes.ErrAlreadyConverted, "cli", "notes-convert",
						fmt.Sprintf("note already converted to %s %s",
							note.ConvertedKind, note.ConvertedArtifactID), nil)
				}

				timeout := time.Duration(cfg.Backend.RequestTimeout) * time.Second
				creator := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.APIToken,
					timeout, http.DefaultClient, logger)
				orch := conversion.NewOrchestrator(creator, journal, logger)

				source := conversion.Source{
					ID:            note.ID,
					Content:       note.Content,
					ParticipantID: participantID,
				}
				if err := orch.Begin(source, kind); err != nil {
					return err
				}
				if kind == conversion.KindProfiling {
					if err := orch.SelectCategory(category); err != nil {
						return err
					}
				}

				artifactID, err := orch.Submit(cmd.Context())
				if err != nil {
					return err
				}

				notifier := notifications.NewService(cfg)
				if notifyErr := notifier.NotifyConversionCompleted(cmd.Context(), string(kind), artifactID); notifyErr != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: notification failed: %v\n", notifyErr)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Converted note %s to %s %s\n",
					shortID(note.ID), kind, artifactID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "", "Artifact kind (pain-point or profiling)")
	cmd.Flags().StringVar(&category, "category", "", "Profiling category (required for profiling)")
	cmd.Flags().StringVar(&participantID, "participant", "", "Participant the artifact belongs to")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}
