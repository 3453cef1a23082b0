package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jward/jsnext"
)

type expandFlags struct {
	write bool
	diff  bool
}

func newExpandCmd(root *rootFlags) *cobra.Command {
	flags := &expandFlags{}
	cmd := &cobra.Command{
		Use:   "expand [path...]",
		Short: "Expand apply-sites in files or directories",
		Long: "Expands every JavaScript file given, or found under the given directories. " +
			"With a single file and neither --write nor --diff, the result is printed to stdout.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpand(cmd, root, flags, args)
		},
	}
	cmd.Flags().BoolVarP(&flags.write, "write", "w", false, "write results back to the source files")
	cmd.Flags().BoolVarP(&flags.diff, "diff", "d", false, "print a line diff for every changed file")
	return cmd
}

func runExpand(cmd *cobra.Command, root *rootFlags, flags *expandFlags, args []string) error {
	start := time.Now()
	if len(args) == 0 {
		args = []string{"."}
	}

	dir, err := targetDir(args)
	if err != nil {
		return err
	}
	s, err := loadSettings(cmd, root, dir)
	if err != nil {
		return err
	}
	stderr := cmd.ErrOrStderr()
	engine, err := newEngine(s, stderr)
	if err != nil {
		return err
	}
	defer engine.Close()
	warnScriptsChanged(engine, stderr)

	results, expandErr := expandPaths(cmd.Context(), engine, args)

	stdout := cmd.OutOrStdout()
	if !flags.write && !flags.diff {
		if len(results) == 1 && results[0].Err == nil {
			fmt.Fprint(stdout, results[0].Code)
			return expandErr
		}
		flags.diff = len(results) > 1
	}

	var changed, cached int
	for _, r := range results {
		if r.Err != nil {
			color.New(color.FgRed).Fprintf(stderr, "error   %s: %s\n", r.Path, r.Err)
			continue
		}
		if r.Cached {
			cached++
		}
		if !r.Changed {
			continue
		}
		changed++
		if flags.diff {
			fmt.Fprint(stdout, lineDiff(r.Path, r.Source, r.Code))
		}
		if flags.write {
			if err := writeResult(r); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(stderr, "wrote   %s (%d apply-sites)\n", r.Path, len(r.Sites))
		}
	}

	color.New(color.FgCyan).Fprintf(stderr, "Expanded %d file(s), %d changed, %d cached in %s\n",
		len(results), changed, cached, time.Since(start).Round(time.Millisecond))
	return expandErr
}

// warnScriptsChanged tells the user that cached files will be expanded again
// because the extension scripts differ from the last run.
func warnScriptsChanged(engine *jsnext.Engine, w io.Writer) {
	if engine.Store() == nil {
		return
	}
	changed, err := engine.ScriptsChanged()
	if err != nil || !changed {
		return
	}
	files, err := engine.Store().Files()
	if err != nil || len(files) == 0 {
		return
	}
	color.New(color.FgYellow).Fprintf(w, "Scripts changed since the last run; %d cached file(s) will be expanded again\n", len(files))
}

// expandPaths expands directories through discovery and plain files as a
// single batch.
func expandPaths(ctx context.Context, engine *jsnext.Engine, args []string) ([]jsnext.FileResult, error) {
	var (
		results []jsnext.FileResult
		files   []string
		errs    []error
	)
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("path not found: %s", arg)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		rs, err := engine.ExpandDirectory(ctx, arg)
		results = append(results, rs...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(files) > 0 {
		rs, err := engine.ExpandFiles(ctx, files)
		results = append(results, rs...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return results, errors.Join(errs...)
}

func writeResult(r jsnext.FileResult) error {
	info, err := os.Stat(r.Path)
	if err != nil {
		return fmt.Errorf("writing %s: %w", r.Path, err)
	}
	if err := os.WriteFile(r.Path, []byte(r.Code), info.Mode().Perm()); err != nil {
		return fmt.Errorf("writing %s: %w", r.Path, err)
	}
	return nil
}
