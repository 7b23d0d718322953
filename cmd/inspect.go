package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"resizer/internal/discover"
	"resizer/internal/profile"
	"resizer/internal/transform"
	"resizer/internal/tui"
	"resizer/pkg/imgutil"
)

var (
	inspectSide   int
	inspectShrink bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <path>",
	Short: "Report image sizes and embedded profiles without modifying files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		walker, err := discover.New(args[0], discover.WithErrorHandler(func(path string, err error) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", tui.WarnStyle.Render(path), tui.DimStyle.Render(err.Error()))
		}))
		if err != nil {
			return err
		}

		first := true
		return walker.Walk(cmd.Context(), func(c discover.Candidate) error {
			if !first {
				fmt.Fprintln(out)
			}
			first = false

			name := c.Path
			if walker.IsDir() {
				name = c.RelPath
			}
			fmt.Fprintln(out, tui.PathStyle.Render(name))
			inspectFile(out, c.Path)
			return nil
		})
	},
}

func inspectFile(out io.Writer, path string) {
	line := func(label, value string) {
		fmt.Fprintf(out, "  %s %s\n", tui.HeadingStyle.Render(label+":"), tui.ValueStyle.Render(value))
	}
	fail := func(err error) {
		fmt.Fprintf(out, "  %s %s\n", tui.DimStyle.Render("-"), tui.ErrorStyle.Render(err.Error()))
	}

	file, err := os.Open(path)
	if err != nil {
		fail(err)
		return
	}
	defer file.Close()

	kind, err := imgutil.SniffReader(file)
	if err != nil {
		fail(err)
		return
	}
	if kind == imgutil.KindUnknown {
		fmt.Fprintf(out, "  %s %s\n", tui.DimStyle.Render("-"), tui.DimStyle.Render("not an image"))
		return
	}
	format := kind.String()
	if !kind.Encodable() {
		format += " (read only)"
	}
	line("Format", format)

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		fail(err)
		return
	}
	w, h, err := transform.Dimensions(file)
	if err != nil {
		fail(err)
	} else {
		size := fmt.Sprintf("%dx%d", w, h)
		if inspectSide > 0 {
			tw, th := transform.TargetSize(w, h, inspectSide, inspectShrink)
			size += fmt.Sprintf(" -> %dx%d", tw, th)
		}
		line("Size", size)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		fail(err)
		return
	}
	report, err := profile.Inspect(kind, file)
	if err != nil {
		fail(err)
		return
	}
	printReport(out, report, line)
}

func printReport(out io.Writer, report profile.Report, line func(label, value string)) {
	if len(report.Categories) == 0 {
		fmt.Fprintf(out, "  %s %s\n", tui.DimStyle.Render("-"), tui.DimStyle.Render("no embedded profiles"))
	} else {
		line("Profiles", strings.Join(report.Categories, ", "))
	}

	if report.ExifTags > 0 {
		details := []string{fmt.Sprintf("%d tags", report.ExifTags)}
		if report.HasGPS {
			details = append(details, tui.WarnStyle.Render("GPS"))
		}
		if report.Model != "" {
			details = append(details, "model "+report.Model)
		}
		if report.Taken != "" {
			details = append(details, "taken "+report.Taken)
		}
		line("EXIF", strings.Join(details, ", "))
	}
	if len(report.TextKeys) > 0 {
		line("Text", strings.Join(report.TextKeys, ", "))
	}
	if report.PPI > 0 {
		line("Density", fmt.Sprintf("%d ppi", report.PPI))
	}
}

func init() {
	inspectCmd.Flags().SetNormalizeFunc(normalizeFlag)
	inspectCmd.Flags().IntVarP(&inspectSide, "side-maximum", "m", 0, "also show the size a resize would produce")
	inspectCmd.Flags().BoolVar(&inspectShrink, "only-shrink", false, "never enlarge when computing the target size")

	rootCmd.AddCommand(inspectCmd)
}
