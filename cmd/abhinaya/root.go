package main

import (
	"context"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/ayusman/abhinaya/internal/app"
	"github.com/ayusman/abhinaya/internal/config"
	"github.com/ayusman/abhinaya/internal/expression"
	"github.com/ayusman/abhinaya/internal/logging"
	"github.com/ayusman/abhinaya/internal/server"
	"github.com/ayusman/abhinaya/internal/store"
)

// Version is the application version.
const Version = "0.1.0"

// options mirrors the command line. Only flags the user set override the
// config file.
type options struct {
	configPath string
	device     int
	output     string
	fps        int
	model      string
	window     string
	headless   bool
	journal    string
	listen     string
	logLevel   string
	logFile    string
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&options{})
}

func newRootCmdWith(opts *options) *cobra.Command {
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:           "abhinaya",
		Short:         "Webcam face outline and expression captions",
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	flags := cmd.Flags()
	flags.IntVarP(&opts.device, "device", "d", defaults.Device, "Camera device index")
	flags.StringVarP(&opts.output, "output", "o", defaults.Output, "Annotated video output path")
	flags.IntVar(&opts.fps, "fps", defaults.FPS, "Nominal frame rate of the output and the landmark timeline")
	flags.StringVarP(&opts.model, "model", "m", defaults.Detector.ModelPath, "Face landmarker model asset")
	flags.StringVar(&opts.window, "window", defaults.Window, "Display window title")
	flags.BoolVar(&opts.headless, "headless", defaults.Headless, "Run without a display window (stop with Ctrl+C)")
	flags.StringVar(&opts.listen, "listen", "", "Serve the live preview on this address (e.g. :8080)")

	persistent := cmd.PersistentFlags()
	persistent.StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	persistent.StringVarP(&opts.journal, "journal", "j", "", "SQLite session journal path")
	persistent.StringVar(&opts.logLevel, "log-level", defaults.Log.Level, "Log level (debug, info, warn, error)")
	persistent.StringVar(&opts.logFile, "log-file", "", "Also write logs to this rotated file")

	cmd.AddCommand(newSessionsCmd(opts))
	return cmd
}

// resolve loads the config file, if any, and applies explicitly set flags.
func (o *options) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("device") {
		cfg.Device = o.device
	}
	if changed("output") {
		cfg.Output = o.output
	}
	if changed("fps") {
		cfg.FPS = o.fps
	}
	if changed("model") {
		cfg.Detector.ModelPath = o.model
	}
	if changed("window") {
		cfg.Window = o.window
	}
	if changed("headless") {
		cfg.Headless = o.headless
	}
	if changed("journal") {
		cfg.Journal = o.journal
	}
	if changed("listen") {
		cfg.Listen = o.listen
	}
	if changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if changed("log-file") {
		cfg.Log.File = o.logFile
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config.Config) error {
	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}

	var st *store.Store
	if cfg.Journal != "" {
		st, err = store.New(cfg.Journal)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer st.Close()
	}

	pipeline, err := app.DefaultFactory().Open(cfg, log)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	var journal *app.Journal
	if st != nil {
		journal, err = app.StartJournal(st, cfg, log)
		if err != nil {
			return err
		}
		pipeline.RegisterFrameCallback(journal.OnFrame)
	}

	if cfg.Listen != "" {
		hub := server.NewHub()
		pipeline.RegisterFrameCallback(hub.Publish)

		srv := server.New(server.Config{Hub: hub, Store: st, Logger: log})
		srvCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := srv.ListenAndServe(srvCtx, cfg.Listen); err != nil {
				log.WithError(err).Error("Preview server failed")
			}
		}()
		defer func() {
			cancel()
			<-done
		}()
	}

	if cfg.Headless {
		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Processing frames"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionSpinnerType(14),
		)
		pipeline.RegisterFrameCallback(func(app.FrameInfo, *gocv.Mat) {
			bar.Add(1)
		})
		defer func() {
			bar.Finish()
			fmt.Fprintln(os.Stderr)
		}()
	}

	summary := pipeline.Run(ctx)

	if journal != nil {
		if err := journal.Finish(summary); err != nil {
			log.WithError(err).Warn("Error finishing journal session")
		}
	}
	logSummary(log, cfg, summary)

	return nil
}

func logSummary(log logrus.FieldLogger, cfg config.Config, summary app.Summary) {
	fields := logrus.Fields{
		"frames":     summary.Frames,
		"detections": summary.Detections,
		"output":     cfg.Output,
	}
	for _, label := range expression.Labels {
		if n := summary.Labels[label]; n > 0 {
			fields[string(label)] = n
		}
	}
	log.WithFields(fields).Info("Session finished")
}
