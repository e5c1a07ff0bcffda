package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/ZacxDev/shorts-splitter/internal/config"
	"github.com/ZacxDev/shorts-splitter/internal/deps"
	"github.com/ZacxDev/shorts-splitter/internal/processor"
	"github.com/ZacxDev/shorts-splitter/pkg/shorts"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	rootCmd = &cobra.Command{
		Use:   "shorts-splitter",
		Short: "Turn a long video into captioned vertical shorts",
		Long: `shorts-splitter downloads a video, splits it into fixed-length parts and renders
each part as a 1080x1920 clip with a blurred background, a burned-in title and a
part number, plus a matching thumbnail.

Examples:
  # Download and split into 60-second shorts
  shorts-splitter make -u https://youtu.be/abc --title "My best goals" -d 60

  # Use a local file, skip the intro and cut out an ad break
  shorts-splitter make -i match.mp4 --title "Final" -s 30s --cut 12:00-13:30

  # Show what would be rendered for 3 clips
  shorts-splitter plan --title "My best goals" -n 3`,
	}

	makeCmd = &cobra.Command{
		Use:   "make",
		Short: "Download, split and caption a video",
		Long: fmt.Sprintf(`Download (or read) one video, split it and render captioned clips and thumbnails.

Options may also come from a details file (URL, title and clip duration on three
lines) and from SHORTS_* variables in a .env file. Command line flags win.

Supported platforms:
%s`, formatSupportedPlatforms()),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, layout, err := runOptions(cmd)
			if err != nil {
				return err
			}

			if errs := deps.CheckAll(opts.InputPath == ""); len(errs) > 0 {
				for _, e := range errs {
					log.Println(e)
				}
				return errors.New("missing required tools")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			report, err := shorts.MakeShorts(ctx, opts, layout)
			if report != nil {
				printReport(report)
			}
			if err != nil {
				return err
			}
			if report.Failed > 0 {
				return errors.Errorf("%d artifact(s) failed", report.Failed)
			}
			return nil
		},
	}

	planCmd = &cobra.Command{
		Use:   "plan",
		Short: "Print the composition plans without running anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, layout, err := runOptions(cmd)
			if err != nil {
				return err
			}
			clips, _ := cmd.Flags().GetInt("clips")
			argsOnly, _ := cmd.Flags().GetBool("args")

			planned, err := shorts.PlanShorts(opts, layout, clips)
			if err != nil {
				return err
			}

			if argsOnly {
				for _, p := range planned {
					fmt.Printf("ffmpeg %s\n", strings.Join(p.Args, " "))
				}
				return nil
			}

			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return errors.WithStack(enc.Encode(planned))
		},
	}

	wrapCmd = &cobra.Command{
		Use:   "wrap [title]",
		Short: "Show how a title is wrapped",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, _ := cmd.Flags().GetString("profile")
			layoutPath, _ := cmd.Flags().GetString("layout")
			layout, err := config.LoadLayout(layoutPath)
			if err != nil {
				return err
			}
			wrapped, err := shorts.WrapTitle(layout, profile, strings.Join(args, " "))
			if err != nil {
				return err
			}
			for _, line := range wrapped.Lines {
				fmt.Println(line)
			}
			return nil
		},
	}

	platformsCmd = &cobra.Command{
		Use:   "platforms",
		Short: "List supported target platforms",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(formatSupportedPlatforms())
		},
	}
)

func formatSupportedPlatforms() string {
	platforms := shorts.GetSupportedPlatforms()
	var sb strings.Builder
	for _, platform := range platforms {
		sb.WriteString(fmt.Sprintf("- %s\n", platform))
	}
	return sb.String()
}

// runOptions collects flags, the details file and the environment into one
// set of options and loads the layout.
func runOptions(cmd *cobra.Command) (*config.RunOptions, config.Layout, error) {
	flags := cmd.Flags()

	envFile, _ := flags.GetString("env")
	if err := config.LoadEnv(envFile); err != nil {
		return nil, config.Layout{}, err
	}

	opts := &config.RunOptions{}
	opts.URL, _ = flags.GetString("url")
	opts.InputPath, _ = flags.GetString("input")
	opts.Title, _ = flags.GetString("title")
	opts.ClipDuration, _ = flags.GetInt("duration")
	opts.Skip, _ = flags.GetString("skip")
	opts.WorkDir, _ = flags.GetString("work-dir")
	opts.ClipsDir, _ = flags.GetString("clips-dir")
	opts.ThumbnailsDir, _ = flags.GetString("thumbnails-dir")
	opts.TargetPlatform, _ = flags.GetString("target-platform")
	opts.LayoutPath, _ = flags.GetString("layout")
	opts.Jobs, _ = flags.GetInt("jobs")
	opts.ContinueOnError, _ = flags.GetBool("continue-on-error")
	opts.KeepTemp, _ = flags.GetBool("keep-temp")
	opts.AssumeYes, _ = flags.GetBool("yes")
	opts.Verbose, _ = flags.GetBool("verbose")

	if !flags.Changed("duration") {
		opts.ClipDuration = 0
	}

	cuts, _ := flags.GetStringArray("cut")
	for _, c := range cuts {
		r, err := config.ParseTimeRange(c)
		if err != nil {
			return nil, config.Layout{}, err
		}
		opts.Cuts = append(opts.Cuts, r)
	}

	if detailsPath, _ := flags.GetString("details"); detailsPath != "" {
		details, err := config.LoadDetailsFile(detailsPath)
		if err != nil {
			return nil, config.Layout{}, err
		}
		details.Apply(opts)
	}
	if opts.ClipDuration <= 0 {
		opts.ClipDuration = config.DefaultClipDuration
	}

	layout, err := config.LoadLayout(opts.LayoutPath)
	if err != nil {
		return nil, config.Layout{}, err
	}

	if err := config.ApplyEnv(opts, &layout, flags.Changed); err != nil {
		return nil, config.Layout{}, err
	}
	if font, _ := flags.GetString("font"); flags.Changed("font") {
		layout.FontFile = font
	}

	return opts, layout, nil
}

func printReport(report *processor.Report) {
	fmt.Printf("\nRun %s\n", report.RunID)
	for _, group := range [][]processor.ArtifactResult{report.Clips, report.Thumbnails} {
		for _, r := range group {
			if r.OK() {
				fmt.Printf("  ok     %-9s part %d  %s\n", r.Kind, r.PartIndex, r.Target)
			} else {
				fmt.Printf("  failed %-9s part %d  %s\n", r.Kind, r.PartIndex, r.Target)
			}
		}
	}
	fmt.Printf("%d clip(s), %d thumbnail(s), %d failed\n", len(report.Clips), len(report.Thumbnails), report.Failed)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("title", "", "Title burned into clips and thumbnails")
	cmd.Flags().IntP("duration", "d", config.DefaultClipDuration, "Duration of each clip in seconds")
	cmd.Flags().String("work-dir", config.DefaultWorkDir, "Directory for the download and temporary files")
	cmd.Flags().String("clips-dir", config.DefaultClipsDir, "Directory for finished clips")
	cmd.Flags().String("thumbnails-dir", config.DefaultThumbsDir, "Directory for thumbnails")
	cmd.Flags().StringP("target-platform", "t", "",
		fmt.Sprintf("Target platform for encoding limits (%s)", strings.Join(shorts.GetSupportedPlatforms(), ", ")))
	cmd.Flags().String("layout", "", "YAML file overriding the default layout")
	cmd.Flags().String("font", config.DefaultFontFile, "Font file for burned-in text")
	cmd.Flags().String("details", "", "Details file with URL, title and clip duration on three lines")
	cmd.Flags().String("env", ".env", "Environment file with SHORTS_* defaults")
	cmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging")
}

func init() {
	addRunFlags(makeCmd)
	makeCmd.Flags().StringP("url", "u", "", "Video URL to download")
	makeCmd.Flags().StringP("input", "i", "", "Local video file instead of a download")
	makeCmd.Flags().StringP("skip", "s", "", "Duration to skip from start (e.g., '1s', '10s', '1m')")
	makeCmd.Flags().StringArray("cut", nil, "Range to remove, e.g. 12:00-13:30 (repeatable)")
	makeCmd.Flags().IntP("jobs", "j", 1, "Number of clips rendered at once")
	makeCmd.Flags().Bool("continue-on-error", false, "Keep rendering when a clip fails")
	makeCmd.Flags().Bool("keep-temp", false, "Keep the segments and trimmed source")
	makeCmd.Flags().BoolP("yes", "y", false, "Answer yes to every prompt")
	makeCmd.MarkFlagsMutuallyExclusive("url", "input")

	addRunFlags(planCmd)
	planCmd.Flags().IntP("clips", "n", 1, "Number of clips to plan")
	planCmd.Flags().Bool("args", false, "Print only the ffmpeg command lines")

	wrapCmd.Flags().String("profile", "caption", "Wrap profile (caption or thumbnail)")
	wrapCmd.Flags().String("layout", "", "YAML file overriding the default layout")

	rootCmd.AddCommand(makeCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(wrapCmd)
	rootCmd.AddCommand(platformsCmd)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
