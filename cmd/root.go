package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"resizer/internal/options"
	"resizer/internal/pipeline"
	"resizer/internal/transform"
	"resizer/internal/tui"
)

var (
	outputPath      string
	sideMaximum     int
	quality         int
	ppi             int
	force           bool
	allowGIF        bool
	remainProfile   bool
	onlyShrink      bool
	noSharpen       bool
	chromaQuartered bool
	singleThread    bool
	threads         int
	configPath      string
	plain           bool
	verbose         bool
)

var rootCmd = &cobra.Command{
	Use:   "resizer [flags] <path>",
	Short: "resizer - batch resize images to a maximum side length",
	Long: "resizer scales a single image or a whole directory tree so the longer side of every image " +
		"matches --side-maximum, writing results in place or into a mirrored output tree.",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runResize,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, tui.ErrorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

func runResize(cmd *cobra.Command, args []string) error {
	params, err := loadParams(cmd.Flags())
	if err != nil {
		return err
	}
	opts, err := options.Build(params)
	if err != nil {
		return err
	}

	interactive := !plain && isTerminal(os.Stdout)
	logger := newLogger(os.Stderr, interactive)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := pipeline.Config{
		Input:       args[0],
		Output:      outputPath,
		Options:     opts,
		Transformer: transform.NewImaging(),
		Logger:      slog.New(logger),
	}

	var summary pipeline.Summary
	if interactive {
		summary, err = runWithProgress(ctx, cancel, cfg)
	} else {
		summary, err = pipeline.Run(ctx, cfg)
	}
	if err != nil && summary.Total() == 0 {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, tui.RenderSummary(tui.SummaryRows(summary)))
	if outcomes := tui.RenderOutcomes(summary); outcomes != "" {
		fmt.Fprintln(out, outcomes)
	}
	if summary.Succeeded > 0 {
		fmt.Fprintln(out, tui.SuccessStyle.Render(destinationNote(outputPath)))
	}

	switch {
	case err != nil:
		return err
	case summary.ExitCode() != 0:
		return fmt.Errorf("%d of %d images failed", summary.Failed, summary.Total())
	}
	return nil
}

// runWithProgress drives the batch behind a bubbletea progress view.
func runWithProgress(ctx context.Context, cancel context.CancelFunc, cfg pipeline.Config) (pipeline.Summary, error) {
	updates := make(chan pipeline.ProgressUpdate, 64)
	cfg.Updates = updates

	program := tea.NewProgram(tui.NewModel(updates, cancel))
	uiDone := make(chan struct{})
	go func() {
		defer close(uiDone)
		if _, err := program.Run(); err != nil {
			cfg.Logger.Error("progress view failed", slog.String("error", err.Error()))
		}
		// The batch may still be sending.
		for range updates {
		}
	}()

	summary, err := pipeline.Run(ctx, cfg)
	close(updates)
	<-uiDone
	return summary, err
}

// loadParams merges built-in defaults, the config file and explicitly set
// flags, in increasing order of precedence.
func loadParams(flags *pflag.FlagSet) (options.Params, error) {
	params := options.Defaults()

	var (
		file *options.File
		err  error
	)
	if configPath != "" {
		file, err = options.LoadFile(configPath)
	} else {
		file, _, err = options.DiscoverFile()
	}
	if err != nil {
		return params, err
	}
	file.Apply(&params)

	if flags.Changed("side-maximum") {
		params.SideMaximum = sideMaximum
	}
	if flags.Changed("quality") {
		params.Quality = quality
	}
	if flags.Changed("ppi") {
		if ppi < 1 {
			return params, fmt.Errorf("%w: --ppi %d must be between 1 and %d", options.ErrInvalidOption, ppi, options.MaxPPI)
		}
		params.PPI = ppi
	}
	if flags.Changed("force") {
		params.Force = force
	}
	if flags.Changed("allow-gif") {
		params.AllowGIF = allowGIF
	}
	if flags.Changed("remain-profile") {
		params.RemainProfile = remainProfile
	}
	if flags.Changed("only-shrink") {
		params.ShrinkOnly = onlyShrink
	}
	if flags.Changed("no-sharpen") {
		params.NoSharpen = noSharpen
	}
	if flags.Changed("chroma-quartered") {
		params.ChromaQuartered = chromaQuartered
	}
	if flags.Changed("single-thread") {
		params.SingleThread = singleThread
	}
	if flags.Changed("threads") {
		if threads < 1 {
			return params, fmt.Errorf("%w: --threads %d must be at least 1", options.ErrInvalidOption, threads)
		}
		params.Threads = threads
	}
	return params, nil
}

func destinationNote(output string) string {
	if output == "" {
		return "Images resized in place."
	}
	if abs, err := filepath.Abs(output); err == nil {
		output = abs
	}
	return "Resized images written to: " + output
}

func newLogger(w io.Writer, interactive bool) *log.Logger {
	level := log.InfoLevel
	switch {
	case verbose:
		level = log.DebugLevel
	case interactive:
		// Warnings would tear the progress view; failures are listed after it.
		level = log.ErrorLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: verbose,
		Prefix:          "resizer",
	})
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// flagAliases maps alternate spellings onto canonical flag names.
var flagAliases = map[string]string{
	"max":    "side-maximum",
	"shrink": "only-shrink",
	"420":    "chroma-quartered",
}

func normalizeFlag(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if canonical, ok := flagAliases[name]; ok {
		name = canonical
	}
	return pflag.NormalizedName(name)
}

func init() {
	flags := rootCmd.Flags()
	flags.SetNormalizeFunc(normalizeFlag)
	flags.StringVarP(&outputPath, "output", "o", "", "destination file or directory (default: overwrite in place)")
	flags.IntVarP(&sideMaximum, "side-maximum", "m", 0, "maximum length of the longer side in pixels")
	flags.IntVarP(&quality, "quality", "q", options.DefaultQuality, "JPEG quality (1-100)")
	flags.IntVar(&ppi, "ppi", 0, "pixels-per-inch written to the output")
	flags.BoolVarP(&force, "force", "f", false, "overwrite existing output files")
	flags.BoolVar(&allowGIF, "allow-gif", false, "process GIF images, including animations")
	flags.BoolVarP(&remainProfile, "remain-profile", "r", false, "keep EXIF, XMP, ICC and IPTC profiles")
	flags.BoolVar(&onlyShrink, "only-shrink", false, "never enlarge images smaller than the bound")
	flags.BoolVar(&noSharpen, "no-sharpen", false, "disable sharpening after resize")
	flags.BoolVar(&chromaQuartered, "chroma-quartered", false, "use 4:2:0 chroma subsampling for JPEG")
	flags.BoolVarP(&singleThread, "single-thread", "s", false, "process one image at a time")
	flags.IntVar(&threads, "threads", 0, "worker count (default: number of CPUs)")
	flags.BoolVar(&plain, "plain", false, "disable the interactive progress view")

	persistent := rootCmd.PersistentFlags()
	persistent.StringVar(&configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/"+options.ConfigRelPath+")")
	persistent.BoolVarP(&verbose, "verbose", "v", false, "log every processed file")

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
}
