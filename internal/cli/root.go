package cli

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/apikit/config"
	"github.com/kbukum/apikit/logger"
)

// ServiceName selects the config and .env files the CLI resolves.
const ServiceName = "apikit"

// rootOptions holds the global flags shared by every subcommand.
type rootOptions struct {
	configFile string
	envFile    string
	json       bool
	verbose    bool
}

// NewRootCommand creates the root command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	root := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "apikit",
		Short: "apikit - authorized calls to downstream APIs",
		Long: `apikit calls the downstream APIs named in its configuration, attaching
an Authorization header acquired for the application or on behalf of a user.

Run 'apikit apis' to list the configured APIs.
Run 'apikit call <service> [path]' to call one of them.
Run 'apikit serve' to expose them through the gateway.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&root.configFile, "config", "", "Path to config file (default: resolved config.yml)")
	cmd.PersistentFlags().StringVar(&root.envFile, "env-file", "", "Path to .env file")
	cmd.PersistentFlags().BoolVar(&root.json, "json", false, "Output in JSON format")
	cmd.PersistentFlags().BoolVarP(&root.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		newCallCommand(root),
		newServeCommand(root),
		newAPIsCommand(root),
		newVersionCommand(root),
	)
	return cmd
}

func (r *rootOptions) loaderOptions() []config.LoaderOption {
	var opts []config.LoaderOption
	if r.configFile != "" {
		opts = append(opts, config.WithConfigFile(r.configFile))
	}
	if r.envFile != "" {
		opts = append(opts, config.WithEnvFile(r.envFile))
	}
	return opts
}

// logger writes to stderr so stdout only carries response bodies.
func (r *rootOptions) logger(cmd *cobra.Command) *logger.Logger {
	level := "warn"
	if r.verbose {
		level = "debug"
	}
	return logger.NewWithWriter(&logger.Config{Level: level, Format: "console", NoColor: true}, ServiceName, cmd.ErrOrStderr())
}
