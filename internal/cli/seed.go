package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ejc.kiosk/go-api/internal/app"
	"ejc.kiosk/go-api/pkg/models"
)

// SeedFile is the YAML layout accepted by the seed command.
type SeedFile struct {
	Products []SeedProduct `yaml:"products"`
}

type SeedProduct struct {
	Name  string `yaml:"name"`
	Price string `yaml:"price"`
	Stock int    `yaml:"stock"`
	// Available defaults to true.
	Available *bool `yaml:"available,omitempty"`
}

func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:          "seed",
		Short:        "Register the products listed in a YAML file",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			seed, err := ParseSeedFile(f)
			if err != nil {
				return err
			}

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

			n, err := Seed(cmd.Context(), svc, seed)
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d product(s)\n", n)
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "seed.yaml", "YAML file with the products to create")
	return cmd
}

// ParseSeedFile decodes and checks a seed file. Prices must be decimals.
func ParseSeedFile(r io.Reader) (*SeedFile, error) {
	var seed SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("invalid seed file: %w", err)
	}
	for i, p := range seed.Products {
		if _, err := decimal.NewFromString(p.Price); err != nil {
			return nil, fmt.Errorf("product %d (%s): invalid price %q", i+1, p.Name, p.Price)
		}
	}
	return &seed, nil
}

// Seed creates every product through the inventory service, so each gets an
// inventory log entry. It stops at the first failure.
func Seed(ctx context.Context, svc *app.Services, seed *SeedFile) (int, error) {
	for i, p := range seed.Products {
		created, err := svc.Inventory.CreateProduct(ctx, models.CreateProductRequest{
			Name:  p.Name,
			Price: decimal.RequireFromString(p.Price),
			Stock: p.Stock,
		}, "seed")
		if err != nil {
			return i, fmt.Errorf("product %d (%s): %w", i+1, p.Name, err)
		}
		if p.Available != nil && !*p.Available {
			if _, err := svc.Inventory.ToggleAvailability(ctx, created.ID, "seed"); err != nil {
				return i + 1, err
			}
		}
	}
	return len(seed.Products), nil
}
