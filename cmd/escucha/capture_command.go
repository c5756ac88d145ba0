package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"escucha/internal/backend"
	"escucha/internal/capture"
	"escucha/internal/config"
	"escucha/internal/language"
	"escucha/internal/notifications"
	"escucha/internal/recognition"
	"escucha/internal/recognition/probe"
	"escucha/internal/storage"
	"escucha/internal/transcripts"
)

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	var usePlaceholder bool

	cmd := &cobra.Command{
		Use:   "capture <parent-session-id>",
		Short: "Capture a live session transcript from the audio stream on stdin",
		Long: "Capture starts a streaming speech-recognition session reading raw\n" +
			"audio from stdin and stores the finished transcript. Press Ctrl-C to\n" +
			"stop; a final segment arriving during shutdown is still kept.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(func(cfg *config.Config, db *storage.DB) error {
				return runCapture(cmd, cfg, db, ctx, args[0], usePlaceholder)
			})
		},
	}

	cmd.Flags().BoolVar(&usePlaceholder, "placeholder", false,
		"Pre-create a recording session row visible to the dashboard before capture starts")
	return cmd
}

func runCapture(cmd *cobra.Command, cfg *config.Config, db *storage.DB, ctx *commandContext, parentSessionID string, usePlaceholder bool) error {
	engine, err := probe.Detect(cfg)
	if err != nil {
		if errors.Is(err, recognition.ErrUnsupportedCapability) {
			return fmt.Errorf("speech recognition is unavailable: set recognition.provider and api_key (or DEEPGRAM_API_KEY) in the configuration")
		}
		return err
	}

	logger := ctx.newLogger(cfg)
	store := transcripts.NewStore(db)
	sink := transcripts.NewCaptureSink(store, logger)
	notifier := notifications.NewService(cfg)

	recorder := capture.NewRecorder(engine, sink, logger, capture.Options{
		MaxDuration: time.Duration(cfg.Capture.MaxDurationSeconds) * time.Second,
	})

	opts := capture.StartOptions{
		ParentSessionID: parentSessionID,
		Stream:          probe.StreamConfig(cfg, cmd.InOrStdin()),
	}
	if usePlaceholder {
		placeholderID, err := sink.CreatePlaceholder(cmd.Context(), parentSessionID)
		if err != nil {
			return err
		}
		opts.PlaceholderID = placeholderID
	}

	if err := recorder.StartCapture(context.Background(), opts); err != nil {
		return err
	}

	sigCtx, cancelSignals := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancelSignals()

	done := make(chan struct{})
	go func() {
		recorder.Wait()
		close(done)
	}()

	out := cmd.OutOrStdout()
	interactive := shouldColorize(out)
	fmt.Fprintln(out, "Recording... press Ctrl-C to stop")

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	signals := sigCtx.Done()
	var lastText string
waitLoop:
	for {
		select {
		case <-signals:
			signals = nil
			if err := recorder.StopCapture(); err != nil && !errors.Is(err, capture.ErrNotRecording) {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: stop failed: %v\n", err)
			}
			fmt.Fprintln(out, "\nStopping...")
		case <-ticker.C:
			if !interactive {
				continue
			}
			snapshot := recorder.Snapshot()
			if snapshot.RunningText != lastText {
				lastText = snapshot.RunningText
				fmt.Fprintf(out, "\r\x1b[2K> %s", lastText)
			}
		case <-done:
			break waitLoop
		}
	}
	if interactive && lastText != "" {
		fmt.Fprintln(out)
	}

	snapshot := recorder.Snapshot()
	switch snapshot.State {
	case capture.StateCompleted:
		return reportCompleted(cmd, cfg, logger, store, recorder, notifier, parentSessionID)
	case capture.StateError:
		if opts.PlaceholderID != "" {
			if err := store.UpdateStatus(cmd.Context(), opts.PlaceholderID, transcripts.StatusError); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: placeholder status update failed: %v\n", err)
			}
		}
		if err := notifier.NotifyError(cmd.Context(), errors.New(snapshot.ErrorDetail), "capture"); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: notification failed: %v\n", err)
		}
		return fmt.Errorf("capture failed: %s", snapshot.ErrorDetail)
	default:
		return fmt.Errorf("capture ended in unexpected state %s", snapshot.State)
	}
}

func reportCompleted(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, store *transcripts.Store, recorder *capture.Recorder, notifier notifications.Service, parentSessionID string) error {
	result, saveErr := recorder.LastResult()
	if result == nil {
		return errors.New("capture completed without a result")
	}
	if saveErr != nil {
		// One retry before surfacing the failure; the transcript itself is
		// still in memory either way.
		if retryErr := recorder.RetrySave(cmd.Context()); retryErr != nil {
			fmt.Fprintln(cmd.OutOrStdout(), result.FullText)
			return fmt.Errorf("transcript could not be saved (text printed above): %w", retryErr)
		}
	}

	out := cmd.OutOrStdout()
	rows := [][]string{{
		formatDuration(result.Duration),
		fmt.Sprintf("%d", result.WordCount),
		fmt.Sprintf("%d", len(result.Segments)),
		language.Display(result.DetectedLanguage),
	}}
	fmt.Fprintln(out, renderTable(
		[]string{"DURATION", "WORDS", "SEGMENTS", "LANGUAGE"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignLeft},
	))

	if err := notifier.NotifyCaptureCompleted(cmd.Context(), parentSessionID, result.WordCount, result.Duration); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: notification failed: %v\n", err)
	}

	sessions, err := store.ListByParent(cmd.Context(), parentSessionID)
	if err == nil && len(sessions) > 0 {
		syncer := backend.NewConfiguredSyncer(cfg, logger)
		if err := syncer.PushTranscriptSession(cmd.Context(), sessions[0]); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: backend sync failed: %v\n", err)
		}
	}
	return nil
}
