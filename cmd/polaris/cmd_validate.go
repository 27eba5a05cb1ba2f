/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/polarisfm/polaris/internal/logging"
	"github.com/polarisfm/polaris/internal/schedule"
)

var validateCmd = &cobra.Command{
	Use:   "validate <schedule-file>",
	Short: "Validate a schedule document",
	Long:  "Parse and validate a JSON or YAML schedule file, reporting excluded events and per-track issues without starting playback",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	log := logging.Setup("development")

	docs, err := schedule.NewFileSource(args[0]).Load(context.Background())
	if err != nil {
		return fmt.Errorf("load schedule: %w", err)
	}

	validated, issues := schedule.Validate(docs, log)

	fmt.Printf("Schedule: %s\n", args[0])
	fmt.Printf("  Events in document: %d\n", len(docs))
	fmt.Printf("  Events accepted:    %d\n", len(validated))

	if len(issues) > 0 {
		fmt.Printf("\nIssues:\n")
		for _, issue := range issues {
			fmt.Printf("  - [%s] event %s: %s\n", issue.Kind, issue.EventID, issue.Detail)
		}
	}

	for _, event := range validated {
		fmt.Printf("\n  %s (%s)\n", event.Name, event.ID)
		fmt.Printf("    window:    %s .. %s\n", event.StartsAt.Format("2006-01-02 15:04:05"), event.EndsAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("    runtime:   %s (%d tracks)\n", event.TotalRuntime(), len(event.Tracks))
		fmt.Printf("    eff. end:  %s\n", event.EffectiveEnd().Format("2006-01-02 15:04:05"))
	}

	if len(issues) > 0 {
		return fmt.Errorf("%d issue(s) found", len(issues))
	}
	return nil
}
