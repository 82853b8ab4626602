package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atlekbai/collection_search/internal/config"
	"github.com/atlekbai/collection_search/internal/db"
	"github.com/atlekbai/collection_search/internal/schema"
	"github.com/atlekbai/collection_search/internal/search"
	"github.com/atlekbai/collection_search/internal/service"
)

type options struct {
	dbURL      string
	schemaFile string
	jsonOut    bool
	yes        bool
	explain    bool
	activeOnly bool
	dayFirst   bool
	yearFirst  bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		cfg = &config.Config{DatabaseURL: "file:collection.db", SchemaFile: "schema.yaml"}
	}
	opts := &options{
		dbURL:      cfg.DatabaseURL,
		schemaFile: cfg.SchemaFile,
		activeOnly: cfg.Search.ActiveOnly,
		dayFirst:   cfg.Search.DayFirst,
		yearFirst:  cfg.Search.YearFirst,
	}

	cmd := &cobra.Command{
		Use:   "csearch <search text>",
		Short: "Search a plant collection",
		Long: `Search a plant collection database.

Three forms are understood:
  plant WHERE accession.species.genus.name = Rosa AND qty > 0
  genus like ros
  rosa quercus`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgErr != nil {
				return cfgErr
			}
			err := run(cmd.Context(), cmd.OutOrStdout(), opts, cfg.Search, strings.Join(args, " "))
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render("error:"), err)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.dbURL, "db", opts.dbURL, "database URL (postgres://, duckdb:, or a SQLite path)")
	f.StringVar(&opts.schemaFile, "schema", opts.schemaFile, "YAML schema file")
	f.BoolVar(&opts.jsonOut, "json", false, "print results as JSON")
	f.BoolVarP(&opts.yes, "yes", "y", false, "run broad searches without asking")
	f.BoolVar(&opts.explain, "strategies", false, "print the strategies that would run and exit")
	f.BoolVar(&opts.activeOnly, "active-only", opts.activeOnly, "drop inactive entities")
	f.BoolVar(&opts.dayFirst, "day-first", opts.dayFirst, "read ambiguous dates as day/month")
	f.BoolVar(&opts.yearFirst, "year-first", opts.yearFirst, "read ambiguous dates as year/month/day")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log strategy selection and SQL")
	return cmd
}

func run(ctx context.Context, out io.Writer, opts *options, prefs config.SearchPrefs, text string) error {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	reg, err := schema.LoadFile(opts.schemaFile)
	if err != nil {
		return err
	}
	session, err := db.Open(ctx, opts.dbURL)
	if err != nil {
		return err
	}
	defer session.Close()

	confirm := promptConfirm
	if opts.yes {
		confirm = func(context.Context, string) bool { return true }
	}
	searcher, err := search.New(reg, session,
		search.WithPreferences(search.Preferences{
			ActiveOnly:    opts.activeOnly,
			MinTermLength: prefs.MinTermLength,
			MaxTerms:      prefs.MaxTerms,
			Dates:         search.DatePrefs{DayFirst: opts.dayFirst, YearFirst: opts.yearFirst},
		}),
		search.WithConfirm(confirm),
		search.WithLogger(log),
	)
	if err != nil {
		return err
	}

	if opts.explain {
		names := searcher.Strategies(text)
		if len(names) == 0 {
			fmt.Fprintln(out, mutedStyle.Render("no strategy applies"))
			return nil
		}
		fmt.Fprintln(out, strings.Join(names, "\n"))
		return nil
	}

	res, err := searcher.Search(ctx, text)
	if err != nil {
		return err
	}
	if opts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(service.ResultMap(res))
	}
	printResult(out, res)
	return nil
}
