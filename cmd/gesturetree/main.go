package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/ayusman/gesturetree/internal/app"
	"github.com/ayusman/gesturetree/internal/config"
	"github.com/ayusman/gesturetree/internal/hook"
	"github.com/ayusman/gesturetree/internal/scene"
	"github.com/ayusman/gesturetree/internal/server"
	"github.com/ayusman/gesturetree/internal/store"
	"github.com/ayusman/gesturetree/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default ~/.gesturetree/config.yaml if present)")
	flag.Parse()

	fmt.Println("GestureTree - Hand-Controlled Particle Tree")

	cfg, err := config.Load(resolveConfigPath(*configPath))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := server.NewHub()
	a, err := app.New(app.Config{Settings: cfg, Store: st, Publisher: hub})
	if err != nil {
		log.Fatalf("Failed to build scene: %v", err)
	}

	webDir := cfg.WebDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	hooks := hook.NewManager(cfg.HooksDir())
	if err := hooks.Discover(); err != nil {
		log.Printf("Failed to discover hooks in %s: %v", hooks.Dir(), err)
	} else if n := len(hooks.List()); n > 0 {
		log.Printf("Loaded %d hooks from %s", n, hooks.Dir())
	}
	dispatcher := hook.NewDispatcher(hooks, hook.NewExecutor(cfg.Hooks.Timeout), 0)
	a.Machine().OnTransition(dispatcher.Notify)
	go dispatcher.Run(ctx)

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		Library:   a,
		State:     a.State(),
		Machine:   a.Machine(),
		Camera:    a,
		Preview:   a.Preview(),
		Hub:       hub,
		Hooks:     hooks,
	})

	a.Start(ctx)
	defer a.Stop()

	serverErr := make(chan error, 1)
	go func() {
		fmt.Printf("Starting server on %s\n", cfg.Addr)
		serverErr <- srv.Run(ctx, cfg.Addr)
		stop()
	}()

	if cfg.Tray {
		runTray(ctx, stop, a, cfg.Addr)
	} else {
		<-ctx.Done()
	}

	if err := <-serverErr; err != nil {
		log.Printf("Server failed: %v", err)
	}
	log.Println("Shutting down")
}

// runTray blocks until the tray quits or ctx is done.
func runTray(ctx context.Context, quit context.CancelFunc, a *app.App, addr string) {
	t := tray.New(a.State(), a.IsEnabled())
	t.OnMode(func(mode scene.Mode) {
		if _, err := a.Machine().Force(mode); err != nil {
			log.Printf("Failed to set mode: %v", err)
		}
	})
	t.OnToggle(func(enabled bool) {
		if err := a.SetEnabled(enabled); err != nil {
			log.Printf("Failed to toggle tracking: %v", err)
		}
	})
	t.OnOpen(func() {
		openBrowser(rendererURL(addr))
	})
	t.OnQuit(quit)
	a.Machine().OnTransition(func(scene.Transition) { t.Refresh() })

	t.Run(ctx)
}

// resolveConfigPath returns flagPath, or the default config file if it
// exists, or "" to run on defaults and environment only.
func resolveConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	p := config.DefaultPath()
	if _, err := os.Stat(p); err == nil {
		return p
	} else if !errors.Is(err, os.ErrNotExist) {
		log.Printf("Cannot read %s: %v", p, err)
	}
	return ""
}

func rendererURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
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
		return
	}
	go cmd.Wait()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.gesturetree/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
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

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".gesturetree", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
