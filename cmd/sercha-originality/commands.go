package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-originality/internal/config"
	"github.com/custodia-labs/sercha-originality/internal/core/domain"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sercha-originality",
		Short: "Plagiarism detection service",
		Long: `sercha-originality checks text against a reference corpus.

Without a subcommand the service runs in the mode named by RUN_MODE
(api, worker, or all). Configuration is read from the environment and
an optional .env file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, cfg.Mode)
		},
	}

	root.AddCommand(
		newServeCmd(config.ModeAPI, "Run the HTTP API only"),
		newServeCmd(config.ModeWorker, "Run the ingest worker only"),
		newServeCmd(config.ModeAll, "Run the HTTP API and the ingest worker"),
		newCheckCmd(),
		newIngestCmd(),
		newTokenCmd(),
	)
	return root
}

func newServeCmd(mode, short string) *cobra.Command {
	return &cobra.Command{
		Use:   mode,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, mode)
		},
	}
}

// serve runs the API, the worker, or both until ctx is cancelled
func serve(ctx context.Context, cfg *config.Config, mode string) error {
	log.Printf("sercha-originality %s starting in %s mode", version, mode)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if mode == config.ModeAPI && cfg.RedisURL == "" {
		log.Println("Warning: in-memory task queue has no consumer in api mode; async ingest will not run")
	}

	g, ctx := errgroup.WithContext(ctx)

	if mode == config.ModeWorker || mode == config.ModeAll {
		w := a.newWorker()
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("failed to start worker: %w", err)
		}
		log.Println("Worker started, processing ingest_source tasks")

		scheduler := a.newScheduler()
		if scheduler != nil {
			if err := scheduler.Start(ctx); err != nil {
				w.Stop()
				return fmt.Errorf("failed to start scheduler: %w", err)
			}
			log.Printf("Scheduler started, pruning check history older than %s", cfg.HistoryRetention)
		}

		g.Go(func() error {
			<-ctx.Done()
			if scheduler != nil {
				scheduler.Stop()
			}
			log.Println("Stopping worker...")
			w.Stop()
			return nil
		})
	}

	if mode == config.ModeAPI || mode == config.ModeAll {
		server := a.newServer()
		g.Go(func() error {
			return server.Start(ctx)
		})
	}

	return g.Wait()
}

func newCheckCmd() *cobra.Command {
	var (
		language     string
		contentType  string
		skipSemantic bool
		claimsOnly   bool
	)

	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Check a file against the configured corpus",
		Long: `Check reads a text file (or stdin when the argument is "-") and prints
the plagiarism report as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			req := domain.CheckRequest{Text: text, Language: language, ContentType: contentTypeOf(args[0], contentType)}
			if skipSemantic || claimsOnly {
				req.Options = &domain.CheckOverrides{SkipSemantic: domain.Opt(skipSemantic), ClaimsOnly: domain.Opt(claimsOnly)}
			}
			report, err := a.checkService.Check(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "Language hint for normalisation")
	cmd.Flags().StringVar(&contentType, "content-type", "", "Markup of the input (default: from the file extension)")
	cmd.Flags().BoolVar(&skipSemantic, "skip-semantic", false, "Run only the lexical layers")
	cmd.Flags().BoolVar(&claimsOnly, "claims-only", false, "Suggest citations only for claim-like sentences")
	return cmd
}

func newIngestCmd() *cobra.Command {
	var (
		id          string
		title       string
		url         string
		contentType string
		async       bool
	)

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Add a file to the reference corpus",
		Long: `Ingest reads a text file (or stdin when the argument is "-") and adds it
to the corpus. The title defaults to the file name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			if title == "" {
				title = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			req := domain.NewSourceRequest{
				ID:          id,
				Title:       title,
				URL:         url,
				Text:        text,
				ContentType: contentTypeOf(args[0], contentType),
			}
			if async {
				task, err := a.corpusService.EnqueueSource(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), task)
			}
			source, err := a.corpusService.AddSource(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), source)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Source ID (default: random UUID)")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Source title")
	cmd.Flags().StringVarP(&url, "url", "u", "", "Source URL")
	cmd.Flags().StringVar(&contentType, "content-type", "", "Markup of the input (default: from the file extension)")
	cmd.Flags().BoolVar(&async, "async", false, "Enqueue for a worker instead of ingesting inline")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		subject string
		role    string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if subject == "" {
				return fmt.Errorf("--subject is required")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			token, err := a.authService.IssueToken(cmd.Context(), subject, domain.Role(role))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "", "Token subject (user or service ID)")
	cmd.Flags().StringVarP(&role, "role", "r", string(domain.RoleMember), "Role: admin or member")
	return cmd
}

// readInput reads the named file, or r when name is "-"
func readInput(r io.Reader, name string) (string, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(r)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

// contentTypeOf returns the explicit type, or the one implied by the file
// extension; plain text and unknown extensions yield ""
func contentTypeOf(name, explicit string) string {
	if explicit != "" {
		return explicit
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm", ".xhtml":
		return "text/html"
	case ".md", ".markdown":
		return "text/markdown"
	}
	return ""
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
