package cli

import (
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"vidstab/internal/config"
	"vidstab/internal/pipeline"
	"vidstab/internal/stabilize"
	"vidstab/internal/storage"
	"vidstab/internal/watch"
)

// NewRootCmd creates the root Cobra command.
func NewRootCmd(cfg *config.Config, log *slog.Logger, store *storage.Store) *cobra.Command {
	root := NewRoot(cfg, log, store)

	rootCmd := &cobra.Command{
		Use:   "vidstab",
		Short: "vidstab stabilises shaky videos",
		Long: `Vidstab estimates the inter-frame camera motion of a video, smooths the
motion trajectory and re-renders each frame so the camera path looks steady.
The output is a side-by-side comparison of the original and stabilised video.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newStabilizeCmd(root))
	rootCmd.AddCommand(newWatchCmd(root))
	rootCmd.AddCommand(newHistoryCmd(root))
	rootCmd.AddCommand(newConfigCmd(root))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newStabilizeCmd(root *Root) *cobra.Command {
	var (
		radius         int
		featuresName   string
		mode           string
		output         string
		chartPath      string
		noStore        bool
		stabilizedOnly bool
	)

	cmd := &cobra.Command{
		Use:   "stabilize <input_video> [output_video]",
		Short: "Stabilise a video file",
		Long: `Run the two-pass stabilisation pipeline over a video. Pass 1 estimates
inter-frame motion, pass 2 writes the corrected side-by-side output.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			if len(args) > 1 {
				output = args[1]
			}
			if output == "" {
				output = root.defaultOutputPath(input)
			}

			opts := root.resolveOptions(radius, cmd.Flags().Changed("smoothing-radius"), featuresName, mode)
			if stabilizedOnly {
				opts.SideBySide = false
			}

			req := stabilize.Request{
				Input:     input,
				Output:    output,
				ChartPath: chartPath,
				Options:   opts,
				SkipStore: noStore,
			}

			res, err := root.svc.Stabilize(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s: %s\n", input, output, formatRunSummary(res))
			return nil
		},
	}

	cmd.Flags().IntVar(&radius, "smoothing-radius", 50, "trajectory smoothing radius; larger is more stable but less reactive to panning")
	cmd.Flags().StringVar(&featuresName, "features", "", "feature backend: gftt, orb, akaze or brisk")
	cmd.Flags().StringVar(&mode, "mode", "", "estimation mode: flow or homography")
	cmd.Flags().StringVar(&chartPath, "chart", "", "write an HTML chart of the raw vs smoothed trajectory")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "skip recording the run in history")
	cmd.Flags().BoolVar(&stabilizedOnly, "stabilized-only", false, "write only the corrected video, no side-by-side comparison")

	return cmd
}

func newWatchCmd(root *Root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [directory...]",
		Short: "Watch directories and stabilise new videos as they appear",
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs := args
			if len(dirs) == 0 {
				dirs = root.cfg.Paths.WatchDirs
			}
			if len(dirs) == 0 {
				return fmt.Errorf("no directories given and paths.watch_dirs is empty")
			}

			ctx := cmd.Context()
			pipe := pipeline.New(ctx, root.cfg.Processing.ParallelJobs, root.svc, root.log)
			defer pipe.Stop()

			settle := time.Duration(root.cfg.Processing.WatchSettleMS) * time.Millisecond
			w, err := watch.New(dirs, settle, root.log)
			if err != nil {
				return err
			}
			if err := w.Start(); err != nil {
				return err
			}
			defer w.Stop()

			results, unsub := pipe.Subscribe()
			defer unsub()

			for {
				select {
				case <-ctx.Done():
					return nil
				case path := <-w.Events:
					job := pipeline.Job{
						ID:        uuid.NewString(),
						InputPath: path,
						Output:    root.defaultOutputPath(path),
					}
					if err := pipe.Submit(job); err != nil {
						root.log.Warn("could not queue video", "path", path, "error", err)
					}
				case res := <-results:
					if res.Error != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "failed: %s: %v\n", res.Job.InputPath, res.Error)
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "stabilised %s -> %s (%d frames)\n",
							res.Job.InputPath, res.Job.Output, res.FramesWritten)
					}
				}
			}
		},
	}
	return cmd
}

func newHistoryCmd(root *Root) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent stabilisation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if root.store == nil {
				return fmt.Errorf("run history is not available (no database configured)")
			}
			runs, err := root.store.RecentRuns(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tSTATUS\tINPUT\tFRAMES\tTRACKED/PAIR\tDURATION")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.1f\t%s\n",
					r.CreatedAt.Format("2006-01-02 15:04:05"),
					r.Status,
					r.InputPath,
					r.FramesWritten,
					r.MeanTrackedPoints,
					r.Duration,
				)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vidstab %s\n", Version)
		},
	}
}
