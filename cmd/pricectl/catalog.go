package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/noah-isme/banner-pricing/internal/app"
	"github.com/noah-isme/banner-pricing/internal/catalog"
	"github.com/noah-isme/banner-pricing/internal/config"
	"github.com/noah-isme/banner-pricing/internal/migrations"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Validate or publish catalog definitions",
	}
	cmd.AddCommand(newCatalogValidateCmd(), newCatalogPublishCmd())
	return cmd
}

func newCatalogValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a catalog file without publishing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := catalog.LoadFile(args[0])
			if err != nil {
				return err
			}
			cat, err := catalog.Build(def)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalog %s is valid: %d materials, %d options\n",
				cat.Version(), len(def.Materials), len(def.Options))
			return nil
		},
	}
}

func newCatalogPublishCmd() *cobra.Command {
	var (
		publishedBy string
		migrate     bool
	)
	cmd := &cobra.Command{
		Use:   "publish <file>",
		Short: "Publish a catalog file to Postgres",
		Long: `Publish validates the file and stores it as a new catalog version.
API and worker replicas pick it up on their next refresh.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := catalog.LoadFile(args[0])
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if migrate {
				if err := migrations.Up(cfg.DatabaseURL); err != nil {
					return err
				}
			}
			ctx := cmd.Context()
			infra, err := app.Connect(ctx, cfg, "pricectl")
			if err != nil {
				return err
			}
			defer infra.Close()

			svc := catalog.NewService(catalog.ServiceConfig{
				Store:  catalog.NewPGStore(infra.DB),
				Cache:  catalog.NewCache(infra.Redis, cfg.Catalog.CacheTTL),
				Source: catalog.SourceDB,
				Logger: zerolog.New(os.Stderr).With().Timestamp().Logger(),
			})
			cat, err := svc.Publish(ctx, def, publishedBy)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published catalog %s\n", cat.Version())
			return nil
		},
	}
	cmd.Flags().StringVar(&publishedBy, "by", os.Getenv("USER"), "operator recorded as publisher")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply database migrations first")
	return cmd
}
