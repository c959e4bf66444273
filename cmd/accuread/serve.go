package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/accuread/internal/app"
	"github.com/ayusman/accuread/internal/capture"
	"github.com/ayusman/accuread/internal/server"
	"github.com/ayusman/accuread/internal/tray"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, optionally with the camera pipeline and tray menu",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "HTTP listen address")
	f.BoolVar(&cfg.CameraEnabled, "camera", cfg.CameraEnabled, "capture from a local camera")
	f.IntVar(&cfg.DeviceID, "device", cfg.DeviceID, "camera device ID")
	f.IntVar(&cfg.FPS, "fps", cfg.FPS, "frames scored per second")
	f.BoolVar(&cfg.TrayEnabled, "tray", cfg.TrayEnabled, "show a system tray menu")
	f.IntVar(&cfg.BufferCapacity, "buffer", cfg.BufferCapacity, "candidate frames kept per session")
	f.IntVar(&cfg.Shortlist, "shortlist", cfg.Shortlist, "candidates submitted for reading on acceptance")
	f.IntVar(&cfg.HashDistance, "hash-distance", cfg.HashDistance, "drop frames within this perceptual hash distance of the last one; -1 disables")
	f.StringVar(&cfg.OCREndpoint, "ocr-endpoint", cfg.OCREndpoint, "OCR service URL")
	f.StringVar(&cfg.OCRPlugin, "ocr-plugin", cfg.OCRPlugin, `recognizer plugin name, or "auto"`)
	f.StringVar(&cfg.OCRPluginConf, "ocr-plugin-config", cfg.OCRPluginConf, "JSON options passed to the recognizer plugin")
	f.StringVar(&cfg.PluginDir, "plugins", cfg.PluginDir, "plugin directory")
	f.DurationVar(&cfg.OCRTimeout, "ocr-timeout", cfg.OCRTimeout, "timeout for one recognition attempt")
	f.IntVar(&cfg.OCRRetries, "ocr-retries", cfg.OCRRetries, "retries for transient OCR service failures")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := buildRecognizer(cfg)
	if err != nil {
		return err
	}

	var cam capture.Camera
	if cfg.CameraEnabled {
		cam = capture.NewCamera(cfg.DeviceID)
	}

	a := app.New(app.Config{
		Store:          st,
		Camera:         cam,
		Recognizer:     rec,
		BufferCapacity: cfg.BufferCapacity,
		Shortlist:      cfg.Shortlist,
		HashDistance:   cfg.HashDistance,
		FPS:            cfg.FPS,
	})

	webDir := findWebDir()
	if webDir != "" {
		slog.Info("serving static files", "dir", webDir)
	}
	httpSrv := server.New(server.Config{
		StaticDir:    webDir,
		Store:        st,
		App:          a,
		MaxDimension: cfg.MaxDimension,
	}).HTTPServer(cfg.HTTPAddr)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if cam != nil {
		a.SetEnabled(true)
		if err := a.Start(ctx); err != nil {
			slog.Error("camera unavailable, continuing without capture", "device", cfg.DeviceID, "error", err)
		} else {
			defer a.Stop()
		}
	}

	if cfg.TrayEnabled {
		go func() {
			if err := <-errCh; err != nil {
				slog.Error("server failed", "error", err)
			}
			cancel()
		}()
		runTray(ctx, cancel, a)
	} else {
		select {
		case <-ctx.Done():
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
		}
	}

	slog.Info("shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	return httpSrv.Shutdown(shutdownCtx)
}

// runTray blocks on the tray menu until quit is chosen or ctx ends.
func runTray(ctx context.Context, cancel context.CancelFunc, a *app.App) {
	tr := tray.New(a.IsEnabled())
	tr.OnToggle(a.SetEnabled)
	tr.OnQuit(cancel)
	tr.OnOpen(func() {
		if err := openBrowser(dashboardURL(cfg.HTTPAddr)); err != nil {
			slog.Warn("failed to open browser", "error", err)
		}
	})

	events, unsubscribe := a.Subscribe()
	defer unsubscribe()
	go func() {
		for ev := range events {
			tr.SetGuidance(ev.Decision.Guidance)
		}
	}()
	go func() {
		<-ctx.Done()
		tr.Quit()
	}()

	tr.Run()
}

func dashboardURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and web/ beside the database.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	homeWebDir := filepath.Join(filepath.Dir(cfg.DBPath), "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}
	return ""
}
