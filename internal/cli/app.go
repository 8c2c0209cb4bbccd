package cli

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/apikit/bootstrap"
	"github.com/kbukum/apikit/config"
)

func (r *rootOptions) loadConfig() (*config.Config, *config.Loader, error) {
	cfg, loader, err := config.Load(ServiceName, r.loaderOptions()...)
	if err != nil {
		return nil, nil, NewConfigError("failed to load configuration", err)
	}
	return cfg, loader, nil
}

func startApp(cmd *cobra.Command, cfg *config.Config, opts ...bootstrap.Option) (*bootstrap.App, error) {
	app, err := bootstrap.New(cmd.Context(), cfg, opts...)
	if err != nil {
		return nil, NewConfigError("failed to assemble application", err)
	}
	return app, nil
}
