package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresmejia3/emolens/internal/config"
	"github.com/andresmejia3/emolens/internal/detector"
	"github.com/andresmejia3/emolens/internal/store"
	"github.com/andresmejia3/emolens/internal/utils"
	"github.com/andresmejia3/emolens/internal/worker"
	"github.com/spf13/cobra"
)

// Options holds shared configuration for every command
type Options struct {
	Backend       string
	WorkerTimeout time.Duration
	Locator       string
	LocatorModel  string
	ModelDir      string
	Height        int
	Record        bool
	NoWindow      bool
}

var (
	opts Options
	// DB is the database connection, opened only by commands that need it
	DB *store.Store
	// dbURL is the connection string
	dbURL string
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "emolens",
	Short:   "Face & emotion detection for cameras, videos and images",
	Version: Version, // This enables the --version flag
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if dbURL == "" {
			dbURL = config.DatabaseURL()
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			// Use Background here because the main context might be cancelled already (due to Ctrl+C)
			// and we still need to send the "Close" command to the DB.
			DB.Close(context.Background())
		}
	},
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dbURL, "db", "", "PostgreSQL connection string (default: built from POSTGRES_* or postgres://localhost:5432/emolens)")
	pf.StringVarP(&opts.Backend, "backend", "b", detector.BackendPython, "Emotion detector backend: python (FER worker) or onnx")
	pf.DurationVar(&opts.WorkerTimeout, "worker-timeout", config.WorkerTimeout, "Timeout for the detector to process a single frame")
	pf.StringVar(&opts.Locator, "locator", detector.LocatorYuNet, "Face locator for the onnx backend: yunet or pigo")
	pf.StringVar(&opts.LocatorModel, "locator-model", "", "YuNet model or pigo cascade file (default: inside --model-dir)")
	pf.StringVar(&opts.ModelDir, "model-dir", config.ModelDir(), "Directory holding ONNX models")
	pf.IntVar(&opts.Height, "height", config.DisplayHeight, "Display height in pixels (0 keeps the source size)")
	pf.BoolVar(&opts.Record, "record", false, "Record detected emotions to PostgreSQL")
	pf.BoolVar(&opts.NoWindow, "no-window", false, "Do not open a display window")
	pf.BoolVarP(&utils.Verbose, "verbose", "v", false, "Print per-frame debug output")
}

// connectDB opens the store once for commands that need it.
func connectDB(ctx context.Context) error {
	if DB != nil {
		return nil
	}
	var err error
	DB, err = store.New(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	return nil
}

// detectorOptions translates CLI options into a backend configuration.
func detectorOptions(o Options) detector.Options {
	onnx := detector.DefaultONNXConfig(o.ModelDir, config.ONNXRuntimeLib())
	onnx.Locator = o.Locator
	if o.LocatorModel != "" {
		onnx.LocatorModel = o.LocatorModel
	}
	return detector.Options{
		Backend: o.Backend,
		Worker: worker.Config{
			Python:      config.PythonBin(),
			Script:      config.WorkerScript(),
			ReadTimeout: o.WorkerTimeout,
		},
		ONNX: onnx,
	}
}

// newDetector starts a detector engine and reports startup failures.
func newDetector(ctx context.Context, id int, o Options) (detector.Detector, error) {
	det, err := detector.New(ctx, id, detectorOptions(o))
	if err != nil {
		utils.ShowError("Failed to start emotion detector", err, nil,
			"python3 and the 'fer' package are installed (pip install fer)",
			"EMOLENS_WORKER points at python/worker.py",
			"for --backend onnx, the models exist under --model-dir")
		return nil, err
	}
	return det, nil
}

// commandOf returns the worker process behind det, if any, for crash reports.
func commandOf(det detector.Detector) *utils.SafeCommand {
	if p, ok := det.(*detector.Python); ok {
		return p.Command()
	}
	return nil
}
