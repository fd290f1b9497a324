package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"itemcam/internal/dto"
	"itemcam/internal/repository"
)

var recordsFilter dto.RecordFilter

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect saved recognition records",
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List records, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		if recordsFilter.Date != "" {
			if _, err := time.Parse("2006-01-02", recordsFilter.Date); err != nil {
				return fmt.Errorf("--date must be YYYY-MM-DD")
			}
		}

		return withStore(cmd.Context(), func(store repository.Store) error {
			records, err := store.List(cmd.Context(), &recordsFilter)
			if err != nil {
				return fmt.Errorf("failed to list records: %w", err)
			}
			total, err := store.Count(cmd.Context(), &recordsFilter)
			if err != nil {
				return fmt.Errorf("failed to count records: %w", err)
			}

			if len(records) == 0 {
				fmt.Println("No records found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tRESULT\tITEM\tFACE\tCREATED")
			fmt.Fprintln(w, "--\t------\t----\t----\t-------")
			for _, rec := range records {
				face := "-"
				if rec.FaceImageURL != nil {
					face = *rec.FaceImageURL
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", rec.ID, rec.RecognitionResult, rec.ItemImageURL, face,
					rec.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			w.Flush()
			fmt.Printf("\n%d of %d record(s)\n", len(records), total)
			return nil
		})
	},
}

func init() {
	recordsListCmd.Flags().StringVar(&recordsFilter.Query, "q", "", "Case-insensitive substring of the result text")
	recordsListCmd.Flags().StringVar(&recordsFilter.Date, "date", "", "Calendar day (UTC), YYYY-MM-DD")
	recordsListCmd.Flags().IntVar(&recordsFilter.Limit, "limit", 24, "Maximum number of records")
	recordsListCmd.Flags().IntVar(&recordsFilter.Offset, "offset", 0, "Records to skip")
	recordsCmd.AddCommand(recordsListCmd)
	rootCmd.AddCommand(recordsCmd)
}
