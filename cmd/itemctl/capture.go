package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"itemcam/internal/app"
	"itemcam/internal/camera"
	"itemcam/internal/logger"
	"itemcam/internal/service/capture"
)

var (
	captureRepeat int
	captureWarmup time.Duration
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Open the cameras locally and run capture invocations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if captureRepeat < 1 {
			captureRepeat = 1
		}

		application, err := app.NewApp(ctx, cfg, logger.NewWriter(os.Stderr))
		if err != nil {
			return err
		}
		// Close waits for background uploads and record writes.
		defer application.Close()

		application.Start(ctx, true)
		if err := waitReady(application.Session(), captureWarmup); err != nil {
			return err
		}

		bar := progressbar.NewOptions(captureRepeat,
			progressbar.OptionSetDescription("📸 Capturing"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)

		outcomes := make([]capture.Outcome, 0, captureRepeat)
		for i := 0; i < captureRepeat && ctx.Err() == nil; i++ {
			outcomes = append(outcomes, application.Capture().Trigger(ctx))
			bar.Add(1)
		}
		bar.Finish()
		fmt.Fprintln(os.Stderr)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "#\tSTATUS\tRESULT\tCACHED\tDURATION")
		for i, out := range outcomes {
			fmt.Fprintf(w, "%d\t%s\t%s\t%v\t%v\n", i+1, out.Kind, out.Display(), out.Cached, out.Duration.Round(time.Millisecond))
		}
		w.Flush()
		return nil
	},
}

// waitReady polls until the rear camera has a renderable frame.
func waitReady(session *camera.Session, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for !session.Ready(camera.Rear) {
		if time.Now().After(deadline) {
			if msg := session.Status().Error; msg != "" {
				return fmt.Errorf("rear camera not ready: %s", msg)
			}
			return fmt.Errorf("rear camera not ready after %v", timeout)
		}
		time.Sleep(100 * time.Millisecond)
	}
	return nil
}

func init() {
	captureCmd.Flags().IntVarP(&captureRepeat, "repeat", "n", 1, "Number of capture invocations")
	captureCmd.Flags().DurationVar(&captureWarmup, "warmup", 5*time.Second, "How long to wait for the rear camera")
	rootCmd.AddCommand(captureCmd)
}
