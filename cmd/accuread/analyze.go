package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ayusman/accuread/internal/app"
	"github.com/ayusman/accuread/internal/capture"
	"github.com/ayusman/accuread/internal/decision"
	"github.com/ayusman/accuread/internal/quality"
	"github.com/ayusman/accuread/internal/recognition"
	"github.com/ayusman/accuread/internal/store"
)

var (
	analyzeJSON bool
	analyzeRead bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image|dir>...",
	Short: "Score images offline and report the capture decision for each",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := collectImages(args)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return errors.New("no images found")
		}

		opts := analyzeOptions{JSON: analyzeJSON, Progress: os.Stderr}
		if len(paths) == 1 {
			opts.Progress = nil
		}

		var closeStore func()
		opts.Quality, closeStore = storedQuality()
		defer closeStore()

		if analyzeRead {
			if opts.Recognizer, err = buildRecognizer(cfg); err != nil {
				return err
			}
			if opts.Recognizer == nil {
				return errors.New("--read needs --ocr-endpoint or --ocr-plugin")
			}
		}
		return analyzeFiles(cmd.Context(), cmd.OutOrStdout(), paths, opts)
	},
}

func init() {
	f := analyzeCmd.Flags()
	f.BoolVar(&analyzeJSON, "json", false, "print one JSON object per image")
	f.BoolVar(&analyzeRead, "read", false, "also read accepted images with the configured recognizer")
	f.StringVar(&cfg.OCREndpoint, "ocr-endpoint", cfg.OCREndpoint, "OCR service URL")
	f.StringVar(&cfg.OCRPlugin, "ocr-plugin", cfg.OCRPlugin, `recognizer plugin name, or "auto"`)
	f.StringVar(&cfg.OCRPluginConf, "ocr-plugin-config", cfg.OCRPluginConf, "JSON options passed to the recognizer plugin")
	f.StringVar(&cfg.PluginDir, "plugins", cfg.PluginDir, "plugin directory")
	rootCmd.AddCommand(analyzeCmd)
}

// imageExts are the file types frame.Decode reads.
var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// collectImages expands directories into the image files below them, in
// lexical order. Files named explicitly are kept whatever their extension.
func collectImages(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		var found []string
		err = filepath.WalkDir(arg, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && imageExts[strings.ToLower(filepath.Ext(p))] {
				found = append(found, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	return paths, nil
}

// storedQuality returns persisted thresholds when a database already
// exists, and the defaults otherwise. analyze never creates a database.
func storedQuality() (quality.Config, func()) {
	if _, err := os.Stat(cfg.DBPath); err != nil {
		return quality.DefaultConfig(), func() {}
	}
	st, err := store.New(cfg.DBPath)
	if err != nil {
		return quality.DefaultConfig(), func() {}
	}
	return app.New(app.Config{Store: st}).QualityConfig(), func() { st.Close() }
}

type analyzeOptions struct {
	JSON       bool
	Quality    quality.Config
	Recognizer recognition.Recognizer
	// Progress receives a progress bar; nil disables it.
	Progress io.Writer
}

type analyzeResult struct {
	Path     string                    `json:"path"`
	Error    string                    `json:"error,omitempty"`
	Verdict  *quality.Verdict          `json:"verdict,omitempty"`
	Decision *decision.CaptureDecision `json:"decision,omitempty"`
	Reading  *recognition.Result       `json:"reading,omitempty"`
}

// analyzeFiles scores each image and writes one line per image to w.
func analyzeFiles(ctx context.Context, w io.Writer, paths []string, opts analyzeOptions) error {
	if opts.Quality == (quality.Config{}) {
		opts.Quality = quality.DefaultConfig()
	}
	assessor := quality.NewAssessor(opts.Quality)
	policy := decision.NewPolicy(opts.Quality)

	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions(len(paths),
			progressbar.OptionSetDescription("Analyzing"),
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	results := make([]analyzeResult, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		results = append(results, analyzeOne(ctx, p, assessor, policy, opts.Recognizer))
		if bar != nil {
			bar.Add(1)
		}
	}
	if bar != nil {
		bar.Finish()
	}

	if opts.JSON {
		enc := json.NewEncoder(w)
		for _, r := range results {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}
	return writeTable(w, results)
}

func analyzeOne(ctx context.Context, path string, a *quality.Assessor, p *decision.Policy, rec recognition.Recognizer) analyzeResult {
	res := analyzeResult{Path: path}

	frames, err := capture.LoadFrames([]string{path}, cfg.MaxDimension)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	v, err := a.Assess(frames[0])
	if err != nil {
		res.Error = err.Error()
		return res
	}
	d := p.Decide(v)
	res.Verdict, res.Decision = &v, &d

	if rec != nil && d.Accepted {
		results, err := recognition.RecognizeFrames(ctx, rec, frames)
		if len(results) == 0 {
			if err == nil {
				err = recognition.ErrNoText
			}
			res.Error = err.Error()
			return res
		}
		res.Reading = &results[0]
	}
	return res
}

func writeTable(w io.Writer, results []analyzeResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSCORE\tSHARP\tBRIGHT\tGLARE\tALIGN\tDECISION\tREADING")
	for _, r := range results {
		if r.Error != "" && r.Verdict == nil {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t-\terror: %s\t\n", r.Path, r.Error)
			continue
		}
		s := r.Verdict.Signals
		outcome := "ACCEPT"
		if !r.Decision.Accepted {
			outcome = string(r.Decision.Reason)
		}
		reading := ""
		switch {
		case r.Reading != nil:
			reading = fmt.Sprintf("%s %s kWh (%.0f%%)",
				r.Reading.Value(recognition.FieldSerialNumber),
				r.Reading.Value(recognition.FieldKWh),
				r.Reading.MeanConfidence()*100)
		case r.Error != "":
			reading = "error: " + r.Error
		}
		fmt.Fprintf(tw, "%s\t%.1f\t%.1f\t%.1f\t%.3f\t%.2f\t%s\t%s\n",
			r.Path, r.Verdict.CompositeScore, s.Sharpness, s.Brightness, s.GlareRatio,
			r.Verdict.AlignmentConfidence, outcome, reading)
	}
	return tw.Flush()
}
