package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newTagsCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List the extension tags available to apply-sites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := targetDir(nil)
			if err != nil {
				return err
			}
			s, err := loadSettings(cmd, root, dir)
			if err != nil {
				return err
			}
			// Listing tags never touches the cache.
			s.dbPath = ""
			engine, err := newEngine(s, io.Discard)
			if err != nil {
				return err
			}
			defer engine.Close()

			for _, tag := range engine.Registry().Tags() {
				fmt.Fprintln(cmd.OutOrStdout(), tag)
			}
			return nil
		},
	}
}
