package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/hearttree/internal/app"
	"github.com/ayusman/hearttree/internal/capture"
	"github.com/ayusman/hearttree/internal/config"
	"github.com/ayusman/hearttree/internal/detector"
	"github.com/ayusman/hearttree/internal/gesture"
	"github.com/ayusman/hearttree/internal/log"
	"github.com/ayusman/hearttree/internal/server"
	"github.com/ayusman/hearttree/internal/store"
	"github.com/ayusman/hearttree/internal/tray"
)

// trayRefresh is how often the tray menu mirrors the app status.
const trayRefresh = 500 * time.Millisecond

type serveFlags struct {
	addr      string
	storePath string
	staticDir string
	gestures  bool
	tray      bool
}

func newServeCommand(g *globalFlags) *cobra.Command {
	f := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the particle tree, its control API and gesture input",
		Long: `Run the frame loop and the HTTP server.

The viewer and manual controls are served on --addr. Gesture input opens
the webcam and starts the MediaPipe hand detector; when either is missing
the tree still runs with manual controls only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			f.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, f.tray)
		},
	}

	cmd.Flags().StringVar(&f.addr, "addr", "", "HTTP listen address (overrides server.addr)")
	cmd.Flags().StringVar(&f.storePath, "store", "", `session store path, ":memory:" for none (overrides store.path)`)
	cmd.Flags().StringVar(&f.staticDir, "static", "", "viewer directory (overrides server.static_dir)")
	cmd.Flags().BoolVar(&f.gestures, "gestures", false, "enable gesture input on start (overrides gesture.enabled_on_start)")
	cmd.Flags().BoolVar(&f.tray, "tray", false, "show a system tray menu")
	return cmd
}

// apply copies explicitly set flags over cfg.
func (f *serveFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if f.addr != "" {
		cfg.Server.Addr = f.addr
	}
	if f.storePath != "" {
		cfg.Store.Path = f.storePath
	}
	if f.staticDir != "" {
		cfg.Server.StaticDir = f.staticDir
	}
	if cmd.Flags().Changed("gestures") {
		cfg.Gesture.EnabledOnStart = f.gestures
	}
}

// appConfig translates the file configuration for the app.
func appConfig(cfg *config.Config, st *store.Store, cam capture.Camera, det detector.Detector) app.Config {
	return app.Config{
		Store:    st,
		Camera:   cam,
		Detector: det,
		Gesture: gesture.Config{
			PinchThreshold: cfg.Gesture.PinchThreshold,
			FastMoveSpeed:  cfg.Gesture.FastMoveSpeed,
		},
		ParticleCount:     cfg.Scene.ParticleCount,
		Seed:              cfg.Scene.Seed,
		FrameRate:         cfg.Scene.FrameRate,
		InferenceInterval: cfg.Gesture.InferenceInterval(),
		DetectTimeout:     cfg.Detector.Timeout(),
		MotionThreshold:   cfg.Gesture.MotionThreshold,
		EnableGestures:    cfg.Gesture.EnabledOnStart,
	}
}

func serve(parent context.Context, cfg *config.Config, withTray bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	cam := capture.NewCamera(capture.Options{
		Device: cfg.Camera.Device,
		Width:  cfg.Camera.Width,
		Height: cfg.Camera.Height,
		FPS:    captureFPS(cfg.Gesture.InferenceInterval()),
	})

	// A nil detector leaves gesture input unavailable.
	var det detector.Detector
	mp, err := detector.NewMediaPipeDetector(detector.Config{
		MaxHands:        cfg.Detector.MaxHands,
		MinConfidence:   cfg.Detector.MinConfidence,
		MinTrackingConf: cfg.Detector.MinTrackingConf,
		ScriptPath:      cfg.Detector.ScriptPath,
		PythonPath:      cfg.Detector.PythonPath,
	})
	if err != nil {
		log.Warn("hand detector unavailable, manual controls only", "error", err)
	} else {
		det = mp
	}

	a, err := app.New(appConfig(cfg, st, cam, det))
	if err != nil {
		return err
	}

	staticDir := cfg.Server.StaticDir
	if staticDir != "" {
		if info, err := os.Stat(staticDir); err != nil || !info.IsDir() {
			log.Warn("viewer directory not found, serving API only", "dir", staticDir)
			staticDir = ""
		}
	}
	srv := server.New(server.Config{StaticDir: staticDir, App: a})

	appDone := make(chan error, 1)
	go func() { appDone <- a.Run(ctx) }()

	srvDone := make(chan error, 1)
	go func() { srvDone <- srv.Run(ctx, cfg.Server.Addr) }()

	if withTray {
		t := newTray(ctx, stop, a, viewerURL(cfg.Server.Addr))
		go runTrayBridge(ctx, a, t)
		go func() {
			<-ctx.Done()
			t.Quit()
		}()
		t.Run()
		stop()
	}

	var srvErr error
	select {
	case srvErr = <-srvDone:
		stop()
	case <-ctx.Done():
		srvErr = <-srvDone
	}
	appErr := <-appDone

	if srvErr != nil && !errors.Is(srvErr, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", srvErr)
	}
	return appErr
}

// captureFPS is the camera rate matching one frame per inference interval,
// never below 1 fps.
func captureFPS(interval time.Duration) int {
	if interval <= 0 {
		return capture.DefaultFPS
	}
	return max(1, int(time.Second/interval))
}

// openStore opens the session store, creating its directory if needed.
func openStore(path string) (*store.Store, error) {
	if path != store.MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	log.Info("session store opened", "path", path)
	return st, nil
}

func newTray(ctx context.Context, quit func(), a *app.App, url string) *tray.Tray {
	t := tray.New()
	t.OnGestures(func(enabled bool) bool {
		status, err := a.SetGesturesEnabled(ctx, enabled)
		if err != nil {
			log.Warn("gesture toggle failed", "error", err)
		}
		return status == app.StatusActive
	})
	t.OnScene(func() {
		if _, err := a.Toggle(ctx); err != nil {
			log.Warn("scene toggle failed", "error", err)
		}
	})
	t.OnOpen(func() {
		if err := openBrowser(url); err != nil {
			log.Warn("could not open viewer", "url", url, "error", err)
		}
	})
	t.OnQuit(quit)
	return t
}

// runTrayBridge mirrors gesture status into the tray menu until ctx ends.
func runTrayBridge(ctx context.Context, a *app.App, t *tray.Tray) {
	ticker := time.NewTicker(trayRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		st := a.Status()
		t.SetGesturesActive(st.Gestures == app.StatusActive)
		t.SetLastGesture(string(st.LastGesture.Label))
	}
}

// viewerURL turns a listen address into a browsable URL.
func viewerURL(addr string) string {
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
