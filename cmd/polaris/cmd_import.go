/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/polarisfm/polaris/internal/db"
	"github.com/polarisfm/polaris/internal/schedule"
)

var importDryRun bool

var importCmd = &cobra.Command{
	Use:   "import <schedule-file>",
	Short: "Import a schedule document into the database",
	Long:  "Validate a JSON or YAML schedule file and replace the database schedule with its contents",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Validate without writing to the database")
}

func runImport(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	ctx := context.Background()

	docs, err := schedule.NewFileSource(args[0]).Load(ctx)
	if err != nil {
		return fmt.Errorf("load schedule: %w", err)
	}

	validated, issues := schedule.Validate(docs, logger)
	for _, issue := range issues {
		fmt.Printf("  - [%s] event %s: %s\n", issue.Kind, issue.EventID, issue.Detail)
	}

	if importDryRun {
		fmt.Printf("Dry run: %d of %d events would be imported.\n", len(validated), len(docs))
		return nil
	}

	database, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close(database)

	store := schedule.NewStore(database, logger)
	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := store.Import(ctx, validated); err != nil {
		return fmt.Errorf("import: %w", err)
	}

	logger.Info().Int("events", len(validated)).Msg("schedule imported")
	fmt.Printf("Imported %d events.\n", len(validated))
	return nil
}
