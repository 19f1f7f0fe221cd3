// ABOUTME: Root cobra command, persistent flags and the shared per-invocation context.
// ABOUTME: Config and logger are resolved once, lazily, by whichever subcommand needs them.
package main

import (
	"errors"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// exitError carries a process exit code through cobra.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

type rootFlags struct {
	server   string
	config   string
	logFile  string
	logLevel string
}

type commandContext struct {
	flags *rootFlags
	cmd   *cobra.Command

	configOnce sync.Once
	config     Config
	configErr  error

	loggerOnce sync.Once
	logger     *zap.Logger
	loggerErr  error
}

func newCommandContext(root *cobra.Command, flags *rootFlags) *commandContext {
	return &commandContext{cmd: root, flags: flags}
}

func (c *commandContext) ensureConfig() (Config, error) {
	c.configOnce.Do(func() {
		path := strings.TrimSpace(c.flags.config)
		explicit := path != ""
		if !explicit {
			p, err := defaultConfigPath()
			if err != nil {
				c.configErr = err
				return
			}
			path = p
		}
		cfg, err := loadConfig(path, explicit)
		if err != nil {
			c.configErr = err
			return
		}

		pf := c.cmd.PersistentFlags()
		if pf.Changed("server") {
			cfg.Server = c.flags.server
		}
		if pf.Changed("log-file") {
			cfg.LogFile = c.flags.logFile
		}
		if pf.Changed("log-level") {
			cfg.LogLevel = c.flags.logLevel
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*zap.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = newLogger(cfg.LogFile, cfg.LogLevel)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) syncLogger() {
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           appName,
		Short:         "Live dashboard for the HLS co-simulation pipeline",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	ctx := newCommandContext(root, flags)

	bindRootFlags(root, flags)
	root.PersistentPostRun = func(cmd *cobra.Command, args []string) { ctx.syncLogger() }

	watch := newWatchCommand(ctx)
	root.RunE = watch.RunE
	root.Flags().AddFlagSet(watch.Flags())

	root.AddCommand(watch)
	root.AddCommand(newStatusCommand(ctx))
	root.AddCommand(newReplayCommand(ctx))
	root.AddCommand(newSessionsCommand(ctx))
	return root
}

func bindRootFlags(root *cobra.Command, flags *rootFlags) {
	pf := root.PersistentFlags()
	pf.StringVar(&flags.server, "server", defaultServer, "Simulation server address (env "+serverEnv+")")
	pf.StringVarP(&flags.config, "config", "c", "", "Config file (default $XDG_CONFIG_HOME/simwatch/config.yaml)")
	pf.StringVar(&flags.logFile, "log-file", "", "Log file, or - for stderr (default $XDG_DATA_HOME/simwatch/simwatch.log)")
	pf.StringVar(&flags.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
}
