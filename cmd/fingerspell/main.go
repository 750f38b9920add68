package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	flag "github.com/ogier/pflag"

	"github.com/ayusman/fingerspell/internal/app"
	"github.com/ayusman/fingerspell/internal/config"
	"github.com/ayusman/fingerspell/internal/server"
	"github.com/ayusman/fingerspell/internal/store"
	"github.com/ayusman/fingerspell/internal/tray"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Fingerspell stopped: %v", err)
		os.Exit(1)
	}
}

// run wires everything together and blocks until shutdown.
func run() error {
	configPath := flag.String("config", config.DefaultPath(), "path to the settings file")
	addr := flag.String("addr", "", "HTTP listen address (overrides the settings file)")
	camera := flag.Int("camera", -1, "camera device index (overrides the settings file)")
	noTray := flag.Bool("no-tray", false, "run without the system tray")
	flag.Parse()

	fmt.Println("Fingerspell - Real-time Fingerspelling Recognition")

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *camera >= 0 {
		cfg.Camera.Device = *camera
	}
	if *noTray {
		cfg.Tray = false
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()

	application := app.New(app.Config{
		Settings: cfg,
		Store:    st,
	})
	defer application.Close()

	// A failed load leaves the status line showing the error; the web UI
	// stays reachable.
	if err := application.Init(); err != nil {
		log.Printf("Model initialization failed: %v", err)
	}

	webDir := cfg.StaticDir
	if webDir == "" {
		webDir = findWebDir(cfg.DataDir)
	}
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		Demo:      application,
	})
	httpServer := srv.HTTPServer(cfg.Addr)

	fmt.Printf("Starting server on %s\n", cfg.Addr)
	serveErr := serve(httpServer)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var failure error
	if cfg.Tray {
		failed := make(chan error, 1)
		t := tray.New(application.Board())
		t.OnStart(application.StartDemo)
		t.OnExit(application.ExitDemo)
		t.OnOpen(func() { openBrowser(browserURL(cfg.Addr)) })

		go func() {
			select {
			case <-sigCh:
			case err := <-serveErr:
				failed <- err
			}
			t.Quit()
		}()

		// Blocks until Quit is chosen, a signal arrives or the server fails.
		t.Run()

		select {
		case failure = <-failed:
		default:
		}
	} else {
		select {
		case <-sigCh:
		case failure = <-serveErr:
		}
	}

	fmt.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
	return failure
}

// serve runs the listener in the background. The channel receives the
// listener's error, if any, and is never closed.
func serve(srv *http.Server) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server: %w", err)
		}
	}()
	return errCh
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	dataWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(dataWebDir); err == nil && info.IsDir() {
		return dataWebDir
	}

	return ""
}

// browserURL turns a listen address into a local URL.
func browserURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}
