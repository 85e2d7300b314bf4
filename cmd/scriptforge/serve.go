package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"scriptforge/internal/persist"
	"scriptforge/internal/preview"
	"scriptforge/internal/server"
)

func getServeCmd(root *rootCommand) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve compilation over HTTP and websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := contextOf(cmd)
			comp, source, err := root.compiler()
			if err != nil {
				return err
			}
			writer, err := persist.NewWriter(root.fs, comp.Profile().Root)
			if err != nil {
				return err
			}
			store, err := root.archive(false)
			if err != nil {
				return err
			}
			deps := server.Deps{
				Compiler: comp,
				Source:   source,
				Writer:   writer,
				Archive:  store,
				Logger:   root.logger,
			}
			if g := root.cfg.Gemini; g.APIKey != "" {
				refiner, err := preview.NewGeminiRefiner(ctx, g.APIKey, g.Model)
				if err != nil {
					return err
				}
				deps.Refiner = refiner
			}

			if !cmd.Flags().Changed("addr") {
				addr = root.cfg.Addr
			}
			srv := server.New(addr, server.NewMux(deps), root.logger)
			errc := make(chan error, 1)
			go func() { errc <- srv.Start() }()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			root.logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from SCRIPTFORGE_ADDR)")
	return cmd
}
