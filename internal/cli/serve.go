package cli

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/apikit/bootstrap"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the downstream gateway",
		Long: `Serve every configured API under <gateway_prefix>/<service>/<path>.
Requests carrying a bearer token are forwarded on behalf of its subject.
The config file is watched and API changes apply without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, loader, err := root.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			opts := []bootstrap.Option{bootstrap.WithLoader(loader)}
			if root.verbose {
				opts = append(opts, bootstrap.WithLogger(root.logger(cmd)))
			}
			app, err := startApp(cmd, cfg, opts...)
			if err != nil {
				return err
			}
			return app.Serve(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host (overrides server.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides server.port)")
	return cmd
}
