package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/arturoeanton/go-rag-qa/internal/service"
)

func newIngestCmd() *cobra.Command {
	var (
		urls []string
		text string
		file string
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest text, a file, or web pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(urls) == 0 && text == "" && file == "" {
				return errors.New("one of --url, --text or --file is required")
			}
			if len(urls) > 0 && (text != "" || file != "") {
				return errors.New("--url cannot be combined with --text or --file")
			}

			return withEngine(cmd, func(e *engine) error {
				out := cmd.OutOrStdout()
				if len(urls) > 0 {
					return ingestURLs(cmd, e, urls)
				}
				body, err := readText(cmd.InOrStdin(), text, file)
				if err != nil {
					return err
				}
				res, err := e.rag.Ingest(cmd.Context(), body, "")
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Stored document %s (%d chunks)\n", res.DocumentID, res.Chunks)
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&urls, "url", nil, "page to scrape and ingest (repeatable)")
	cmd.Flags().StringVar(&text, "text", "", "text to ingest")
	cmd.Flags().StringVarP(&file, "file", "f", "", "file to ingest (- for stdin)")
	return cmd
}

func ingestURLs(cmd *cobra.Command, e *engine, urls []string) error {
	out := cmd.OutOrStdout()
	bar := progressbar.NewOptions(len(urls),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Scraping[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(cmd.ErrOrStderr())
		}),
	)
	var barMu sync.Mutex

	results := e.batch.IngestURLs(cmd.Context(), urls, func(done, _ int, _ service.URLResult) {
		barMu.Lock()
		defer barMu.Unlock()
		bar.Set(done)
	})

	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(out, "FAIL %s: %v\n", r.URL, r.Err)
			continue
		}
		fmt.Fprintf(out, "OK   %s -> %s (%d chunks)\n", r.URL, r.DocumentID, r.Chunks)
	}
	if failed := service.Failed(results); len(failed) > 0 {
		return fmt.Errorf("%d of %d URLs failed", len(failed), len(results))
	}
	return nil
}

// readText returns the --text value, or the contents of --file ("-" reads stdin).
func readText(stdin io.Reader, text, file string) (string, error) {
	if text != "" {
		return text, nil
	}
	if file == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", file, err)
	}
	return string(b), nil
}

func newAskCmd() *cobra.Command {
	var showContext bool
	cmd := &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Answer a question from the stored documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(e *engine) error {
				ans, err := e.rag.Answer(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, ans.Answer)
				if showContext {
					fmt.Fprintln(out, "\n--- context ---")
					for _, s := range ans.Sources {
						fmt.Fprintf(out, "[%.4f] %s\n", s.Score, s.Content)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&showContext, "context", false, "print the retrieved chunks and their scores")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List answered questions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(e *engine) error {
				items, err := e.rag.History(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No history.")
					return nil
				}
				for _, it := range items {
					fmt.Fprintf(out, "%s  Q: %s\n%s  A: %s\n\n",
						it.CreatedAt.Format("2006-01-02 15:04:05"), it.Question,
						strings.Repeat(" ", 19), it.Answer)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries to show (0 = all)")
	return cmd
}

func newPurgeCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete all documents, chunks and history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to purge without --yes")
			}
			return withEngine(cmd, func(e *engine) error {
				if err := e.rag.Purge(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "All data purged.")
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}
