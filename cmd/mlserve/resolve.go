package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mlserve/internal/config"
	"mlserve/internal/resolver"
)

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve [name...]",
		Short: "Resolve and download model artifacts without serving",
		Long: "Resolves each name to its latest registry version and downloads the artifact\n" +
			"into the cache directory. Names default to the configured models.",
		Example: "  mlserve resolve invoice-model po-model --cache-dir /tmp/models",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, getenv)
			if err != nil {
				return err
			}
			names := cfg.Models
			if len(args) > 0 {
				names = config.SplitNames(strings.Join(args, ","))
			}
			if len(names) == 0 {
				return config.ErrNoModels
			}
			log, err := newLogger(cmd.ErrOrStderr(), cfg.LogFormat, cfg.LogLevel)
			if err != nil {
				return err
			}
			res, closeLocker, err := buildResolver(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer closeLocker()
			return runResolve(cmd, res, names)
		},
	}
}

func runResolve(cmd *cobra.Command, res *resolver.Resolver, names []string) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tVERSION\tRUN\tSIZE\tPATH")
	failed := 0
	for _, name := range names {
		art, err := res.Resolve(cmd.Context(), name)
		if err != nil {
			failed++
			fmt.Fprintf(tw, "%s\t-\t-\t-\t%v\n", name, err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", name, art.Version, art.RunID, humanize.Bytes(uint64(art.Bytes)), art.Path)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d models failed to resolve", failed, len(names))
	}
	return nil
}
