package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"scriptforge/internal/archive"
	"scriptforge/internal/compiler"
	"scriptforge/internal/config"
	"scriptforge/internal/flowsource"
	"scriptforge/internal/framework"
	"scriptforge/internal/logging"
)

// rootCommand holds what every subcommand shares: the resolved config, the
// logger and the filesystem the framework checkout lives on.
type rootCommand struct {
	cmd    *cobra.Command
	fs     afero.Fs
	stdout io.Writer
	stderr io.Writer

	envFile string
	cfg     config.Config
	logger  *logrus.Logger
	closers []func() error
}

func newRootCommand(fs afero.Fs, stdout, stderr io.Writer) *rootCommand {
	c := &rootCommand{fs: fs, stdout: stdout, stderr: stderr}
	c.cmd = &cobra.Command{
		Use:                "scriptforge",
		Short:              "Compile recorded browser flows into Playwright artifacts",
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  c.persistentPreRunE,
		PersistentPostRunE: c.persistentPostRunE,
	}
	c.cmd.SetOut(stdout)
	c.cmd.SetErr(stderr)
	c.cmd.PersistentFlags().AddFlagSet(c.persistentFlagSet())
	c.cmd.AddCommand(
		getCompileCmd(c),
		getPreviewCmd(c),
		getRefineCmd(c),
		getIngestCmd(c),
		getServeCmd(c),
	)
	return c
}

func (c *rootCommand) persistentFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.StringVar(&c.envFile, "env-file", "", "dotenv file to load before reading the environment (default .env)")
	flags.String("framework-root", "", "root of the Playwright framework checkout")
	flags.String("profile", "", "YAML framework profile overriding discovered directories")
	flags.String("flows-dir", "", "directory holding *.refined.json flow documents")
	flags.String("pg-dsn", "", "Postgres DSN of the recorded step store")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (text or json)")
	return flags
}

func (c *rootCommand) persistentPreRunE(cmd *cobra.Command, _ []string) error {
	var files []string
	if c.envFile != "" {
		files = append(files, c.envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	override := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	override("framework-root", &cfg.FrameworkRoot)
	override("profile", &cfg.ProfileFile)
	override("flows-dir", &cfg.FlowsDir)
	override("pg-dsn", &cfg.PostgresDSN)
	override("log-level", &cfg.LogLevel)
	override("log-format", &cfg.LogFormat)
	c.cfg = cfg

	c.logger, err = logging.New(c.stderr, cfg.LogLevel, cfg.LogFormat)
	return err
}

func (c *rootCommand) persistentPostRunE(*cobra.Command, []string) error {
	var first error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}

func (c *rootCommand) profile() (framework.Profile, error) {
	p, err := framework.Discover(c.fs, c.cfg.FrameworkRoot)
	if err != nil {
		return framework.Profile{}, err
	}
	if c.cfg.ProfileFile != "" {
		return framework.LoadProfile(c.fs, c.cfg.ProfileFile, p)
	}
	return p, nil
}

// postgres opens the step store, or returns nil when no DSN is configured.
func (c *rootCommand) postgres() (*flowsource.PostgresSource, error) {
	if c.cfg.PostgresDSN == "" {
		return nil, nil
	}
	pg, err := flowsource.NewPostgres(c.cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, pg.Close)
	return pg, nil
}

// source chains the flow directory ahead of the step store.
func (c *rootCommand) source() (flowsource.Source, error) {
	chain := flowsource.Chain{flowsource.NewDirSource(c.fs, c.cfg.FlowsDir, c.logger)}
	pg, err := c.postgres()
	if err != nil {
		return nil, err
	}
	if pg != nil {
		chain = append(chain, pg)
	}
	return chain, nil
}

func (c *rootCommand) compiler() (*compiler.Compiler, flowsource.Source, error) {
	profile, err := c.profile()
	if err != nil {
		return nil, nil, err
	}
	source, err := c.source()
	if err != nil {
		return nil, nil, err
	}
	c.logger.WithFields(logrus.Fields{
		"root":     profile.Root,
		"locators": profile.Locators(),
		"pages":    profile.Pages(),
		"tests":    profile.Tests(),
	}).Debug("framework profile")
	return compiler.New(source, c.fs, profile, c.logger), source, nil
}

// archive returns the configured object store. required makes a missing
// endpoint an error instead of falling back to memory.
func (c *rootCommand) archive(required bool) (archive.Store, error) {
	a := c.cfg.Artifact
	if !a.Enabled() {
		if required {
			return nil, fmt.Errorf("archiving needs ARTIFACT_S3_ENDPOINT")
		}
		return archive.NewMemoryStore(), nil
	}
	return archive.NewS3Store(archive.S3Config{
		Endpoint:  a.Endpoint,
		Region:    a.Region,
		AccessKey: a.AccessKey,
		SecretKey: a.SecretKey,
		Bucket:    a.Bucket,
		UseSSL:    a.UseSSL,
	})
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
