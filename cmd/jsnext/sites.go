package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jward/jsnext/internal/store"
)

var errNoCache = errors.New("the sites log lives in the cache database; remove --no-cache")

func newSitesCmd(root *rootFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "sites [path]",
		Short: "List apply-sites recorded by earlier expansions",
		Long:  "Reads the apply-site log from the cache database. With a path, only sites in that file are listed.",
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return validateFormat(format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSites(cmd, root, format, args)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format: json|text")
	return cmd
}

func validateFormat(format string) error {
	if format != "json" && format != "text" {
		return fmt.Errorf("invalid format %q: must be json or text", format)
	}
	return nil
}

func runSites(cmd *cobra.Command, root *rootFlags, format string, args []string) error {
	dir, err := targetDir(args)
	if err != nil {
		return err
	}
	s, err := loadSettings(cmd, root, dir)
	if err != nil {
		return err
	}
	if s.dbPath == "" {
		return errNoCache
	}

	st, err := store.NewStore(s.dbPath)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer st.Close()
	if err := st.Migrate(); err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}

	sites, err := collectSites(st, args)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if format == "json" {
		return writeSitesJSON(w, sites)
	}
	writeSitesText(w, sites)
	return nil
}

func collectSites(st *store.Store, args []string) ([]*store.Site, error) {
	if len(args) == 0 {
		return st.AllSites()
	}
	f, err := st.FileByPath(args[0])
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, nil
	}
	return st.SitesByFile(f.ID)
}

func writeSitesJSON(w io.Writer, sites []*store.Site) error {
	if sites == nil {
		sites = []*store.Site{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sites)
}

func writeSitesText(w io.Writer, sites []*store.Site) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tLINE\tCOL\tTAGS")
	for _, s := range sites {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", s.Path, s.Line, s.Col, strings.Join(s.Tags, ","))
	}
	tw.Flush()
}
