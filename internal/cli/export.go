package cli

import (
	"os"

	"github.com/spf13/cobra"

	"ejc.kiosk/go-api/internal/app"
)

func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:          "export",
		Short:        "Write the delivered orders CSV report",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(rootOpts)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			svc, err := app.Build(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer svc.Close(cmd.Context())

			if out == "" {
				return svc.Reports.WriteCSV(cmd.Context(), cmd.OutOrStdout())
			}
			if out == "." {
				out = svc.Reports.ExportFilename()
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := svc.Reports.WriteCSV(cmd.Context(), f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", `output file ("." for the dated default name, empty for stdout)`)
	return cmd
}
