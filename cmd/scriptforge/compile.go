package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"scriptforge/internal/archive"
	"scriptforge/internal/compiler"
	"scriptforge/internal/persist"
)

func getCompileCmd(root *rootCommand) *cobra.Command {
	var (
		previewFile string
		write       bool
		runID       string
	)
	cmd := &cobra.Command{
		Use:   "compile <flow>",
		Short: "Compile a recorded flow into locators, a page object and a test script",
		Example: `
  # Print the artifacts as JSON.
  scriptforge compile create-invoice

  # Compile only the steps kept in an edited preview and write them into the framework.
  scriptforge compile create-invoice --preview invoice.preview.txt --write`[1:],
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOf(cmd)
			comp, _, err := root.compiler()
			if err != nil {
				return err
			}
			req := compiler.Request{Flow: args[0]}
			if previewFile != "" {
				raw, err := afero.ReadFile(root.fs, previewFile)
				if err != nil {
					return fmt.Errorf("read preview: %w", err)
				}
				req.Preview = string(raw)
			}
			res, err := comp.Compile(ctx, req, nil)
			if err != nil {
				return err
			}

			if write {
				w, err := persist.NewWriter(root.fs, comp.Profile().Root)
				if err != nil {
					return err
				}
				written, err := w.Persist(res.Artifacts.Files())
				if err != nil {
					return err
				}
				for _, p := range written {
					fmt.Fprintln(cmd.OutOrStdout(), p)
				}
			}
			if runID != "" {
				store, err := root.archive(true)
				if err != nil {
					return err
				}
				paths, err := archive.Save(ctx, store, runID, res.Artifacts)
				if err != nil {
					return err
				}
				root.logger.WithField("run", runID).WithField("files", len(paths)).Info("archived artifacts")
			}
			if write {
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&previewFile, "preview", "", "accepted preview text restricting the compiled steps")
	flags.BoolVar(&write, "write", false, "write the artifacts into the framework root instead of printing them")
	flags.StringVar(&runID, "archive", "", "also archive the artifacts under this run id")
	return cmd
}
