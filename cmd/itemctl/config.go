package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"itemcam/internal/compress"
	"itemcam/internal/repository"
)

var presetsFile string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or replace the compression presets",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active presets as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(store repository.Store) error {
			presets, err := store.GetCompressionConfig(cmd.Context())
			switch {
			case errors.Is(err, repository.ErrNotFound):
				fmt.Println("# no presets stored, showing defaults")
				presets = compress.DefaultConfig()
			case err != nil:
				return fmt.Errorf("failed to load presets: %w", err)
			}

			out, err := compress.MarshalPresets(presets)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		})
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Validate a YAML preset file and store it",
	RunE: func(cmd *cobra.Command, args []string) error {
		presets, err := compress.LoadPresetsFile(presetsFile)
		if err != nil {
			return err
		}
		return withStore(cmd.Context(), func(store repository.Store) error {
			if err := store.SetCompressionConfig(cmd.Context(), presets); err != nil {
				return fmt.Errorf("failed to store presets: %w", err)
			}
			fmt.Printf("✅ Presets from %s stored. Running servers pick them up within %v.\n", presetsFile, cfg.ConfigCacheTTL)
			return nil
		})
	},
}

func init() {
	configSetCmd.Flags().StringVarP(&presetsFile, "file", "f", "", "YAML preset file")
	configSetCmd.MarkFlagRequired("file")
	configCmd.AddCommand(configShowCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
