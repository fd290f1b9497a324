package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"itemcam/internal/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the record and configuration tables if they are missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Opening the store applies the schema.
		return withStore(cmd.Context(), func(store repository.Store) error {
			fmt.Printf("✅ Schema ready (%s)\n", cfg.DBDriver)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
