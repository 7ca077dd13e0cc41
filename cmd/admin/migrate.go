package main

import (
	"fmt"

	"minimarket/migrations"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica o revierte migraciones del esquema",
	}

	var upSteps int
	up := &cobra.Command{
		Use:   "up",
		Short: "Aplica migraciones pendientes (todas, o --steps N)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(mg *migrations.Migrator) error {
				if upSteps > 0 {
					return mg.Steps(upSteps)
				}
				return mg.Up()
			})
		},
	}
	up.Flags().IntVar(&upSteps, "steps", 0, "cantidad de migraciones a aplicar (0 = todas)")

	var downSteps int
	var all bool
	down := &cobra.Command{
		Use:     "down",
		Short:   "Revierte migraciones (--steps N, o --all)",
		Args:    cobra.NoArgs,
		Example: "  admin migrate down --steps 1\n  admin migrate down --all",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && downSteps <= 0 {
				return fmt.Errorf("indique --steps N o --all")
			}
			return withMigrator(func(mg *migrations.Migrator) error {
				if all {
					return mg.Down()
				}
				return mg.Steps(-downSteps)
			})
		},
	}
	down.Flags().IntVar(&downSteps, "steps", 0, "cantidad de migraciones a revertir")
	down.Flags().BoolVar(&all, "all", false, "revierte todo el esquema")

	version := &cobra.Command{
		Use:   "version",
		Short: "Muestra la version actual del esquema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(mg *migrations.Migrator) error {
				v, dirty, err := mg.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", v, dirty)
				return nil
			})
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

func withMigrator(fn func(*migrations.Migrator) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mg, err := migrations.NewFromURL(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer mg.Close()
	return fn(mg)
}
