package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ejc.kiosk/go-api/pkg/mongo"
)

func NewIndexesCommand(rootOpts *RootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:          "indexes",
		Short:        "Create the MongoDB indexes the API relies on",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				for _, idx := range mongo.RequiredIndexes() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %v\n", idx.CollectionName, idx.IndexModel.Keys)
				}
				return nil
			}

			cfg, logger, err := setup(rootOpts)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			db, err := mongo.Connect(cmd.Context(), mongo.Options{
				URI:          cfg.MongoURI,
				Database:     cfg.DatabaseName,
				Transactions: cfg.MongoTransactions,
				Logger:       logger,
			})
			if err != nil {
				return err
			}
			defer db.Close(cmd.Context())

			return db.EnsureIndexes(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the indexes without connecting")
	return cmd
}
