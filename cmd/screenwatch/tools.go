package main

import (
	"errors"
	"fmt"
	"image"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/screenwatch/internal/events"
	"github.com/GriffinCanCode/screenwatch/internal/journal"
	"github.com/GriffinCanCode/screenwatch/internal/ocr"
	"github.com/GriffinCanCode/screenwatch/internal/screen"
)

func newCaptureCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture the configured region once and save it as PNG",
		Long: `Captures the region exactly as a monitoring tick would, which helps when
tuning the region coordinates.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			data, err := captureOnce(cmd, cfg.CaptureBackend, cfg.Monitor.Region.Rect())
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s) from region %s\n",
				output, humanize.Bytes(uint64(len(data))), cfg.Monitor.Region)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "region.png", "Output file")
	return cmd
}

func captureOnce(cmd *cobra.Command, backend string, region image.Rectangle) ([]byte, error) {
	capturer, err := screen.New(backend)
	if err != nil {
		return nil, err
	}
	defer capturer.Close()
	return capturer.Capture(cmd.Context(), region)
}

func newOCRCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ocr [image.png]",
		Short: "Print the text recognized in an image, or in the configured region",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			var data []byte
			if len(args) == 1 {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = captureOnce(cmd, cfg.CaptureBackend, cfg.Monitor.Region.Rect())
			}
			if err != nil {
				return err
			}

			extractor, err := ocr.New(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = extractor.Close() }()

			text, err := extractor.Extract(cmd.Context(), data, cfg.Monitor.Language)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var (
		limit       int
		journalPath string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent matches and replies from the journal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if journalPath == "" {
				journalPath = cfg.JournalPath
			}
			if journalPath == "" {
				return errors.New("no journal configured; set JOURNAL_PATH or pass --journal")
			}

			j, err := journal.Open(journalPath)
			if err != nil {
				return err
			}
			defer j.Close()

			ctx := cmd.Context()
			recent, err := j.Recent(ctx, limit)
			if err != nil {
				return err
			}
			matches, err := j.Count(ctx, events.MatchFound)
			if err != nil {
				return err
			}
			dispatched, err := j.Count(ctx, events.ActionDispatched)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tEVENT\tKEYWORD\tDETAIL")
			for _, e := range recent {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", humanize.Time(e.Time), e.Type, e.Keyword, detail(e))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%s matches, %s replies recorded\n", humanize.Comma(int64(matches)), humanize.Comma(int64(dispatched)))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", journal.DefaultRecentLimit, "Number of entries to show")
	cmd.Flags().StringVar(&journalPath, "journal", "", "Journal database (overrides JOURNAL_PATH)")
	return cmd
}

func detail(e events.Event) string {
	switch e.Type {
	case events.MatchFound:
		return e.Line
	case events.ActionDispatched:
		if e.Outcome == events.OutcomeFailed {
			return fmt.Sprintf("typed %q failed: %s", e.Payload, e.Error)
		}
		return fmt.Sprintf("typed %q", e.Payload)
	default:
		return e.Reason
	}
}
