package cmd

import (
	"github.com/spf13/cobra"

	"github.com/askiada/splatctl/internal/dataset"
)

func (a *app) sampleCommand() *cobra.Command {
	var step int

	cmd := &cobra.Command{
		Use:   "sample <source> <target>",
		Short: "Copy one image out of every --step into target",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := dataset.Sample(cmd.Context(), dataset.SampleOptions{
				Source:  args[0],
				Target:  args[1],
				Step:    step,
				Options: a.jobOptions("sample"),
			})
			if err != nil {
				return err
			}

			return a.report(report)
		},
	}

	cmd.Flags().IntVar(&step, "step", 5, "sampling interval")

	return cmd
}

func (a *app) mergePanoCommand() *cobra.Command {
	var (
		cameras int
		keep    bool
	)

	cmd := &cobra.Command{
		Use:   "merge-pano <source> [target]",
		Short: "Flatten pano_camera{i}/ folders into pano_camera{i}_<name> files",
		Long: "Copy every file of source/pano_camera{i}/ to target/pano_camera{i}_<name>, then remove the\n" +
			"camera folders unless --keep is set. target defaults to source.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]
			if len(args) == 2 {
				target = args[1]
			}

			report, err := dataset.MergePano(cmd.Context(), dataset.MergeOptions{
				Source:  args[0],
				Target:  target,
				Cameras: cameras,
				Keep:    keep,
				Options: a.jobOptions("merge-pano"),
			})
			if err != nil {
				return err
			}

			return a.report(report)
		},
	}

	cmd.Flags().IntVar(&cameras, "cameras", dataset.DefaultCameras, "number of pano_camera folders")
	cmd.Flags().BoolVar(&keep, "keep", false, "keep the camera folders")

	return cmd
}

func (a *app) colmapCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "colmap",
		Short: "Fix COLMAP text models of merged panorama datasets",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "images <images.txt>",
			Short: "Rewrite image names to the merged png names and set their camera to 1",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				err := dataset.RewriteImagesTxt(args[0])
				if err != nil {
					return err
				}

				a.logger.Info("images.txt rewritten", "path", args[0])

				return nil
			},
		},
		&cobra.Command{
			Use:   "cameras <cameras.txt>",
			Short: "Keep only the first camera",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				err := dataset.KeepFirstCamera(args[0])
				if err != nil {
					return err
				}

				a.logger.Info("cameras.txt trimmed", "path", args[0])

				return nil
			},
		},
	)

	return cmd
}

func (a *app) prepareCommand() *cobra.Command {
	opts := dataset.PrepareOptions{}

	cmd := &cobra.Command{
		Use:   "prepare <root>",
		Short: "Lay out a processed dataset root for training",
		Long: "Recreate root/masks, create root/depths and rewrite root/sparse/0/images.txt.\n" +
			"--convert, --keep-first-camera and --merge-pano run before, in that order.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Root = args[0]
			opts.Options = a.jobOptions("prepare")

			reports, err := dataset.Prepare(cmd.Context(), opts)
			for _, report := range reports {
				reportErr := a.report(report)
				if err == nil {
					err = reportErr
				}
			}

			return err
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.ConvertPNG, "convert", false, "convert root/images jpg files to png")
	flags.BoolVar(&opts.KeepFirstCamera, "keep-first-camera", false, "trim sparse/0/cameras.txt to its first camera")
	flags.BoolVar(&opts.MergePano, "merge-pano", false, "merge root/images/pano_camera{i} folders")
	flags.IntVar(&opts.Cameras, "cameras", dataset.DefaultCameras, "number of pano_camera folders")

	return cmd
}

func (a *app) convertCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <dir>",
		Short: "Replace the jpg images of dir with png",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := dataset.ConvertToPNG(cmd.Context(), dataset.ConvertOptions{
				Dir:     args[0],
				Options: a.jobOptions("convert"),
			})
			if err != nil {
				return err
			}

			return a.report(report)
		},
	}
}

func (a *app) videoCommand() *cobra.Command {
	var (
		out    string
		fps    int
		ffmpeg string
	)

	cmd := &cobra.Command{
		Use:     "video <frames dir>...",
		Short:   "Encode one video per camera from pano_camera{i}_frame_{n} images",
		Example: "  splatctl video --out videos results/train/renders results/test/renders",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := dataset.Videos(cmd.Context(), dataset.VideoOptions{
				Dirs:    args,
				Out:     out,
				FPS:     fps,
				FFmpeg:  ffmpeg,
				Runner:  a.runner(),
				Options: a.jobOptions("video"),
			})
			if err != nil {
				return err
			}

			return a.report(report)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&out, "out", "o", "videos", "output directory")
	flags.IntVar(&fps, "fps", dataset.DefaultFPS, "frames per second")
	flags.StringVar(&ffmpeg, "ffmpeg", "ffmpeg", "ffmpeg binary")

	return cmd
}
