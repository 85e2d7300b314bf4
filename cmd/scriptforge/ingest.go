package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"scriptforge/internal/flow"
)

func getIngestCmd(root *rootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <document.json>...",
		Short: "Store refined flow documents in the Postgres step store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pg, err := root.postgres()
			if err != nil {
				return err
			}
			if pg == nil {
				return fmt.Errorf("ingest needs a Postgres DSN (--pg-dsn or SCRIPTFORGE_PG_DSN)")
			}
			for _, file := range args {
				raw, err := afero.ReadFile(root.fs, file)
				if err != nil {
					return err
				}
				doc, err := flow.ParseDocument(raw)
				if err != nil {
					return fmt.Errorf("%s: %w", file, err)
				}
				if doc.Meta.Slug == "" {
					return fmt.Errorf("%s: flow document has no name or slug", file)
				}
				n, err := pg.Ingest(contextOf(cmd), doc)
				if err != nil {
					return fmt.Errorf("%s: %w", file, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d steps\n", doc.Meta.Slug, n)
			}
			return nil
		},
	}
}
