package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ejc.kiosk/go-api/pkg/global"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFile string
	Driver  string
}

// NewRootCommand creates the root command for the kiosk API binary.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ejc-kiosk",
		Short: "EJC kiosk ordering API",
		Long:  "Backend for the EJC snack kiosk: storefront cart and checkout, kitchen queue, stock control and dashboard.",
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file to load before reading the environment")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "override STORE_DRIVER (mongo|memory)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewIndexesCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))

	return cmd
}

// setup loads the environment and builds a validated config and logger.
func setup(opts *RootOptions) (*global.Config, *zap.Logger, error) {
	bootstrap, err := global.NewLogger(global.GetEnvOrDefault("ENV", "development"))
	if err != nil {
		return nil, nil, err
	}
	global.LoadEnvFile(bootstrap, opts.EnvFile)

	cfg := global.LoadConfig()
	if opts.Driver != "" {
		cfg.StoreDriver = opts.Driver
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger, err := global.NewLogger(cfg.Env)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
