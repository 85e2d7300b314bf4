package main

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"scriptforge/internal/compiler"
	"scriptforge/internal/preview"
)

func getPreviewCmd(root *rootCommand) *cobra.Command {
	var maxLines int
	cmd := &cobra.Command{
		Use:   "preview <flow>",
		Short: "Print the editable step list of a recorded flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := root.source()
			if err != nil {
				return err
			}
			steps, _, err := source.Steps(contextOf(cmd), args[0])
			if err != nil {
				return err
			}
			if len(steps) == 0 {
				return &compiler.InputError{Flow: args[0]}
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), preview.Render(steps, maxLines))
			return err
		},
	}
	cmd.Flags().IntVar(&maxLines, "max", 0, "maximum number of lines (0 prints all)")
	return cmd
}

func getRefineCmd(root *rootCommand) *cobra.Command {
	var feedback string
	cmd := &cobra.Command{
		Use:   "refine <preview-file>",
		Short: "Rewrite a preview according to reviewer feedback using Gemini",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(feedback) == "" {
				return fmt.Errorf("--feedback is required")
			}
			g := root.cfg.Gemini
			if g.APIKey == "" {
				return fmt.Errorf("GEMINI_API_KEY is not set")
			}
			raw, err := afero.ReadFile(root.fs, args[0])
			if err != nil {
				return fmt.Errorf("read preview: %w", err)
			}
			ctx := contextOf(cmd)
			refiner, err := preview.NewGeminiRefiner(ctx, g.APIKey, g.Model)
			if err != nil {
				return err
			}
			refined, err := refiner.Refine(ctx, string(raw), feedback)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), refined)
			return err
		},
	}
	cmd.Flags().StringVar(&feedback, "feedback", "", "reviewer instructions")
	return cmd
}
