package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/csg33k/alta-clientes/internal/adapters/xlsx"
	"github.com/csg33k/alta-clientes/internal/config"
	"github.com/csg33k/alta-clientes/internal/domain"
)

func newFillCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "fill <values-file>",
		Short: "Fill both templates from a key=value file without sending anything",
		Long: `fill reads form values from a file of key=value lines (the same field names
the web form posts, e.g. nombre=Acme or planta_nombre_1=Planta Norte) and writes
the client and plants spreadsheets to the output directory. Use it to check a
template against the cell layout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			values, err := godotenv.Read(args[0])
			if err != nil {
				return fmt.Errorf("read values: %w", err)
			}
			rec := domain.Record(values)
			filler, err := newFiller(cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client, err := filler.FillClient(ctx, rec, xlsx.DecodeSignature(rec.Get("firma_cliente")))
			if err != nil {
				return err
			}
			plants, err := filler.FillPlants(ctx, rec.ClientName(), domain.ExtractPlants(rec, domain.MaxPlantSlots))
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			for _, d := range []domain.Document{client, plants} {
				path := filepath.Join(outDir, d.Filename)
				if err := os.WriteFile(path, d.Content, 0o644); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory to write the spreadsheets to")
	return cmd
}

func newTemplatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage the spreadsheet templates",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write blank templates matching the cell layout into TEMPLATE_DIR",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			filler, err := newFiller(cfg)
			if err != nil {
				return err
			}
			written, err := xlsx.WriteBlankTemplates(cfg.TemplateDir, filler.Layout(), force)
			for _, p := range written {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			if err != nil {
				return err
			}
			if len(written) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "templates already exist; use --force to overwrite")
			}
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite existing templates")
	cmd.AddCommand(initCmd)
	return cmd
}
