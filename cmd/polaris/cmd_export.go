/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/polarisfm/polaris/internal/db"
	"github.com/polarisfm/polaris/internal/schedule"
)

var exportCmd = &cobra.Command{
	Use:   "export <output-file>",
	Short: "Export the database schedule to a document",
	Long:  "Write the database schedule to a JSON or YAML file; the format follows the output file extension",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
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

	eventsList, err := store.Load(context.Background())
	if err != nil {
		return fmt.Errorf("load schedule: %w", err)
	}

	docs := schedule.Documents(eventsList)

	var data []byte
	switch strings.ToLower(filepath.Ext(args[0])) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(docs)
	default:
		data, err = json.MarshalIndent(docs, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}

	if err := os.WriteFile(args[0], data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", args[0], err)
	}

	fmt.Printf("Exported %d events to %s.\n", len(docs), args[0])
	return nil
}
