package summarizer

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// MarkdownFormatter renders a Summary as a Markdown document.
type MarkdownFormatter struct {
	translate func(string) string
	version   string
}

// Option configures a MarkdownFormatter.
type Option func(*MarkdownFormatter)

// WithTranslator sets the function used to translate headings and labels.
func WithTranslator(fn func(string) string) Option {
	return func(f *MarkdownFormatter) {
		f.translate = fn
	}
}

// WithVersion adds the program version to the footer.
func WithVersion(v string) Option {
	return func(f *MarkdownFormatter) {
		f.version = v
	}
}

// NewMarkdownFormatter creates a formatter. Labels are English unless a
// translator is given.
func NewMarkdownFormatter(opts ...Option) *MarkdownFormatter {
	f := &MarkdownFormatter{translate: func(s string) string { return s }}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	t := f.translate
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", t("Session Summary"))
	fmt.Fprintf(&b, "- %s: %s\n", t("Generated"), s.GeneratedAt.Format(time.RFC3339))
	if !s.StartedAt.IsZero() {
		fmt.Fprintf(&b, "- %s: %s\n", t("Started"), s.StartedAt.Format(time.RFC3339))
		fmt.Fprintf(&b, "- %s: %s\n", t("Duration"), s.Duration.Round(time.Second))
	}
	fmt.Fprintf(&b, "- %s: %d\n", t("Recordings"), s.RecordingCount())
	b.WriteString("\n")

	fmt.Fprintf(&b, "## %s\n\n", t("Settings"))
	fmt.Fprintf(&b, "| %s | %s |\n|---|---|\n", t("Setting"), t("Value"))
	fmt.Fprintf(&b, "| %s | %s |\n", t("Videos Directory"), orDash(s.Settings.VideosDir))
	fmt.Fprintf(&b, "| %s | %s |\n", t("Images Directory"), orDash(s.Settings.ImagesDir))
	fmt.Fprintf(&b, "| %s | %s |\n", t("Container"), orDash(s.Settings.VideoExt))
	fmt.Fprintf(&b, "| %s | %d |\n", t("Quality"), s.Settings.Quality)
	fmt.Fprintf(&b, "| %s | %.2f |\n", t("Display Scale"), s.Settings.ConvertScale)
	fmt.Fprintf(&b, "| %s | %s |\n", t("Convert Every Frame"), yesNo(t, s.Settings.ProcessAll))
	b.WriteString("\n")

	fmt.Fprintf(&b, "## %s\n\n", t("Disk"))
	if s.Disk.Status != "" {
		fmt.Fprintf(&b, "- %s: %s\n", t("Last Status"), s.Disk.Status)
	} else {
		fmt.Fprintf(&b, "- %s: N/A\n", t("Last Status"))
	}
	if s.Disk.FloorBytes > 0 {
		fmt.Fprintf(&b, "- %s: %s\n", t("Floor"), formatBytes(int64(s.Disk.FloorBytes)))
	}
	if s.Disk.Tripped {
		fmt.Fprintf(&b, "- **%s**\n", t("Free space fell below the floor; recordings were stopped"))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## %s\n\n", t("Sources"))
	fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
		t("Source"), t("Target"), t("Frames"), t("Capture FPS"), t("Converted"),
		t("Convert Drops"), t("Display Drops"), t("Stalls"), t("Reallocations"))
	b.WriteString("|---|---|---:|---:|---:|---:|---:|---:|---:|\n")
	for _, src := range s.Sources {
		fmt.Fprintf(&b, "| %s | %s (%s) | %d | %.1f | %d | %d | %d | %d | %d |\n",
			src.Name, src.Target, src.Kind, src.Frames, src.CaptureFPS, src.Converted,
			src.ConvertDropped, src.DisplayDrops, src.Stalls, src.Reallocs)
	}
	b.WriteString("\n")

	for _, src := range s.Sources {
		if src.Error != "" {
			fmt.Fprintf(&b, "- %s **%s**: %s\n", t("Failed to open"), src.Name, src.Error)
		}
	}

	if s.RecordingCount() > 0 {
		fmt.Fprintf(&b, "\n## %s\n\n", t("Recordings"))
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n|---|---|---:|---:|---|---|\n",
			t("Source"), t("File"), t("Frames"), t("Duration"), t("Codec"), t("Size"))
		for _, src := range s.Sources {
			for _, r := range src.Recordings {
				size := "N/A"
				if r.Width > 0 {
					size = fmt.Sprintf("%dx%d", r.Width, r.Height)
				}
				codec := orDash(r.Codec)
				if r.Error != "" {
					codec = t("error") + ": " + r.Error
				}
				fmt.Fprintf(&b, "| %s | %s | %d | %s | %s | %s |\n",
					src.Name, filepath.Base(r.Path), r.Frames, r.Duration.Round(time.Millisecond), codec, size)
			}
		}
	}

	if f.version != "" {
		fmt.Fprintf(&b, "\n---\n%s %s\n", t("Generated by multicam"), f.version)
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(t func(string) string, v bool) string {
	if v {
		return t("yes")
	}
	return t("no")
}

// formatBytes formats a byte count with binary units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 3; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMGT"[exp])
}

var _ Formatter = (*MarkdownFormatter)(nil)
