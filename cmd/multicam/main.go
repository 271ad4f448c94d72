// Package main provides the CLI entry point for multicam.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/ideamans/go-l10n"

	"github.com/user/multicam/pkg/adapters/camerasource"
	"github.com/user/multicam/pkg/adapters/diskspace"
	"github.com/user/multicam/pkg/adapters/ffmpeg"
	"github.com/user/multicam/pkg/adapters/ffmpegwriter"
	"github.com/user/multicam/pkg/adapters/ggrenderer"
	"github.com/user/multicam/pkg/adapters/logger"
	"github.com/user/multicam/pkg/adapters/mp4probe"
	"github.com/user/multicam/pkg/adapters/opener"
	"github.com/user/multicam/pkg/adapters/osfilesystem"
	"github.com/user/multicam/pkg/config"
	"github.com/user/multicam/pkg/orchestrator"
	"github.com/user/multicam/pkg/pipeline"
	"github.com/user/multicam/pkg/ports"
	"github.com/user/multicam/pkg/stages/stills"
)

// CLI defines the command-line interface with subcommands.
type CLI struct {
	Run     RunCmd     `cmd:"" default:"withargs" help:"Capture, display and record every configured source."`
	Stills  StillsCmd  `cmd:"" help:"Assemble a directory of still images into a video."`
	Probe   ProbeCmd   `cmd:"" help:"Show container metadata of a recorded video."`
	Devices DevicesCmd `cmd:"" help:"List capture devices."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// RunCmd defines the run subcommand.
type RunCmd struct {
	Config string `short:"c" type:"path" help:"YAML configuration file."`

	// Sources (override the file)
	Camera  []string `short:"s" help:"Source as name=index or name=path; repeatable."`
	Display *string  `help:"Comma separated sources to display, in grid order."`
	Record  *string  `short:"r" help:"Comma separated sources that record from the start."`

	// Output
	VideosDir *string `help:"Directory for recordings."`
	ImagesDir *string `help:"Directory for snapshots."`
	VideoExt  *string `help:"Recording container extension (mp4, mkv, avi)."`
	Summary   *string `help:"Write a Markdown session summary to this file."`

	// Encoding
	FPS     *float64 `help:"Frame rate written to device recordings."`
	Quality *int     `short:"q" help:"Encoder CRF (0 = encoder default)."`

	// Display
	ViewerAddr   *string  `short:"a" help:"Viewer listen address, e.g. :8080 (empty disables the viewer)."`
	Fullscreen   bool     `short:"f" help:"Hide viewer controls."`
	ConvertScale *float64 `help:"Scale applied before display (1 = native size)."`
	ProcessAll   bool     `help:"Convert every frame instead of only the newest."`

	// Disk
	DiskFloorGB *float64 `help:"Stop recordings when free space falls below this many GiB."`

	// Session
	UntilIdle bool `help:"End the session when every source has finished."`

	// Tools
	FFmpegPath *string `help:"Path to the ffmpeg executable (falls back to FFMPEG_PATH env, then PATH)."`
	FontPath   *string `help:"TrueType font used for overlays."`

	// Logging options
	LogLevel string `short:"l" help:"Log level (debug, info, warn, error); overrides the file."`
	Quiet    bool   `short:"Q" help:"Suppress all log output."`
}

// StillsCmd defines the stills subcommand.
type StillsCmd struct {
	Dir     string  `arg:"" type:"existingdir" help:"Directory scanned recursively for .jpg and .png files."`
	Output  string  `short:"o" required:"" help:"Output video file path."`
	FPS     float64 `default:"20" help:"Frames per second of the output."`
	Quality int     `short:"q" help:"Encoder CRF (0 = encoder default)."`

	LogLevel string `short:"l" default:"info" enum:"debug,info,warn,error" help:"Log level (debug, info, warn, error)."`
}

// ProbeCmd defines the probe subcommand.
type ProbeCmd struct {
	Path string `arg:"" type:"existingfile" help:"MP4 file to inspect."`
}

// DevicesCmd lists capture devices.
type DevicesCmd struct{}

// VersionCmd shows version information.
type VersionCmd struct{}

var version = "dev"

func main() {
	cli := CLI{}

	ctx := kong.Parse(&cli,
		kong.Name("multicam"),
		kong.Description(l10n.T("Capture, display and record several cameras and video files at once.")),
		kong.UsageOnError(),
	)

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

// Run executes the run command.
func (cmd *RunCmd) Run() error {
	cfg := config.Defaults()
	if cmd.Config != "" {
		loaded, err := config.LoadFromFile(cmd.Config)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if err := cmd.apply(&cfg); err != nil {
		return err
	}

	log := newLogger(cfg.LogLevel, cmd.Quiet)
	if cfg.FFmpegPath != "" {
		ffmpeg.SetFFmpegPath(cfg.FFmpegPath)
	}

	orchConfig, err := cfg.ToOrchestratorConfig()
	if err != nil {
		return err
	}
	orchConfig.StopWhenIdle = cmd.UntilIdle
	orchConfig.Version = version

	ctx, cancel := signalContext()
	defer cancel()

	orch := orchestrator.New(orchestrator.Deps{
		Pipeline: pipeline.Deps{
			Opener:    opener.New(),
			NewWriter: ffmpegwriter.Factory,
			Inspector: mp4probe.New(),
			Renderer:  ggrenderer.New(),
			FS:        osfilesystem.New(),
			Logger:    log,
		},
		Disk:      diskspace.New(),
		Translate: l10n.T,
	})

	_, err = orch.Run(ctx, orchConfig)
	return err
}

// apply overlays command line flags on cfg.
func (cmd *RunCmd) apply(cfg *config.Config) error {
	for _, pair := range cmd.Camera {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return fmt.Errorf("invalid --camera %q, want name=index or name=path", pair)
		}
		if cfg.Cameras == nil {
			cfg.Cameras = make(map[string]string)
		}
		cfg.Cameras[strings.TrimSpace(name)] = value
	}

	setString(&cfg.Display, cmd.Display)
	setString(&cfg.Record, cmd.Record)
	setString(&cfg.VideosDir, cmd.VideosDir)
	setString(&cfg.ImagesDir, cmd.ImagesDir)
	setString(&cfg.VideoExt, cmd.VideoExt)
	setString(&cfg.Summary, cmd.Summary)
	setString(&cfg.ViewerAddr, cmd.ViewerAddr)
	setString(&cfg.FFmpegPath, cmd.FFmpegPath)
	setString(&cfg.FontPath, cmd.FontPath)
	if cmd.LogLevel != "" {
		cfg.LogLevel = cmd.LogLevel
	}

	if cmd.FPS != nil {
		cfg.FPS = *cmd.FPS
	}
	if cmd.Quality != nil {
		cfg.Quality = *cmd.Quality
	}
	if cmd.ConvertScale != nil {
		cfg.ConvertScale = *cmd.ConvertScale
	}
	if cmd.DiskFloorGB != nil {
		cfg.DiskFloorGB = *cmd.DiskFloorGB
	}
	if cmd.Fullscreen {
		cfg.Fullscreen = true
	}
	if cmd.ProcessAll {
		cfg.ProcessAll = true
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Run executes the stills command.
func (cmd *StillsCmd) Run() error {
	log := newLogger(cmd.LogLevel, false)

	ctx, cancel := signalContext()
	defer cancel()

	stage := stills.NewStage(osfilesystem.New(), ggrenderer.New(), ffmpegwriter.Factory, log.WithComponent("stills"))
	result, err := stage.Execute(ctx, cmd.Dir, cmd.Output, stills.Options{
		FPS:     cmd.FPS,
		Encoder: ports.EncoderOptions{Quality: cmd.Quality},
	})
	if err != nil {
		return err
	}
	if result.Skipped > 0 {
		log.Warn("%d stills skipped", result.Skipped)
	}
	return nil
}

// Run executes the probe command.
func (cmd *ProbeCmd) Run() error {
	info, err := mp4probe.New().Inspect(cmd.Path)
	if err != nil {
		return err
	}
	fmt.Println(l10n.F("Codec: %s", info.Codec))
	fmt.Println(l10n.F("Size: %dx%d", info.Width, info.Height))
	fmt.Println(l10n.F("Frames: %d, Duration: %dms", info.Samples, info.DurationMs))
	if info.Fragmented {
		fmt.Println(l10n.T("Fragmented MP4"))
	}
	return nil
}

// Run executes the devices command.
func (cmd *DevicesCmd) Run() error {
	devices := camerasource.Devices()
	if len(devices) == 0 {
		fmt.Println(l10n.T("No capture devices found"))
		return nil
	}
	for _, d := range devices {
		fmt.Printf("%d\t%s\t%s\n", d.Index, d.Label, d.ID)
	}
	return nil
}

// Run executes the version command.
func (cmd *VersionCmd) Run() error {
	fmt.Println(l10n.F("multicam version %s", version))
	return nil
}

func newLogger(level string, quiet bool) ports.Logger {
	if quiet {
		return logger.NewNoop()
	}
	return logger.NewConsole(ports.ParseLogLevel(level))
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
