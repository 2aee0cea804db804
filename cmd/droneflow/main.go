package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/droneflow/internal/api"
	"github.com/joeblew999/droneflow/internal/backend"
	"github.com/joeblew999/droneflow/internal/backend/backendtest"
	"github.com/joeblew999/droneflow/internal/config"
	"github.com/joeblew999/droneflow/internal/ledger"
	"github.com/joeblew999/droneflow/internal/logger"
	"github.com/joeblew999/droneflow/internal/projector"
	"github.com/joeblew999/droneflow/internal/report"
	"github.com/joeblew999/droneflow/internal/server"
	"github.com/joeblew999/droneflow/internal/web"
	"github.com/joeblew999/droneflow/internal/workflow"
)

// Options defines the CLI flags and env vars. Zero values keep the loaded
// configuration.
// Flags: --host, --port, --backend, --config, --verbose
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_BACKEND, SERVICE_CONFIG, SERVICE_VERBOSE
type Options struct {
	Host    string `doc:"Host to bind the workspace server to"`
	Port    int    `doc:"Port to listen on" short:"p"`
	Backend string `doc:"Terrain-analysis backend base URL"`
	Config  string `doc:"Path to a YAML config file" short:"c"`
	Verbose bool   `doc:"Enable debug logging"`
}

func loadConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.NewLoader().Load(opts.Config)
	if err != nil {
		return nil, err
	}
	if opts.Host != "" {
		cfg.View.Host = opts.Host
	}
	if opts.Port != 0 {
		cfg.View.Port = opts.Port
	}
	if opts.Backend != "" {
		cfg.Backend.URL = opts.Backend
	}
	if opts.Verbose {
		cfg.Verbose = true
	}
	return cfg, cfg.Validate()
}

func newController(cfg *config.Config, log *logger.Logger) *workflow.Controller {
	client := backend.New(backend.Config{
		BaseURL:        cfg.Backend.URL,
		UploadTimeout:  cfg.Backend.UploadTimeout,
		ProcessTimeout: cfg.Backend.ProcessTimeout,
	})
	proj := projector.New(projector.MapCenter{
		Latitude:  cfg.Map.DefaultCenter.Lat,
		Longitude: cfg.Map.DefaultCenter.Lon,
	})
	return workflow.New(client, proj, log.WithComponent("workflow"))
}

// app is the fully wired workspace server.
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	ctrl   *workflow.Controller
	ledger *ledger.Ledger
	srv    *server.Server
}

func newApp(opts *Options) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	log := logger.New("droneflow", cfg.Verbose)

	a := &app{cfg: cfg, log: log, ctrl: newController(cfg, log)}

	// The ledger is optional; the workspace runs without run history.
	if a.ledger, err = ledger.Open(log.WithComponent("ledger")); err != nil {
		log.Warn("run ledger unavailable", logger.Err(err))
		a.ledger = nil
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	a.srv, err = server.New(server.Config{
		Host:           cfg.View.Host,
		Port:           fmt.Sprintf("%d", cfg.View.Port),
		BackendURL:     cfg.Backend.URL,
		BundleURL:      cfg.View.BundleURL,
		Zoom:           cfg.Map.Zoom,
		MaxUploadBytes: cfg.View.MaxUploadBytes,
	}, a.ctrl, a.ledger, renderer, log.WithComponent("server"))
	if err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// close releases whatever newApp has built so far.
func (a *app) close() {
	a.ctrl.Close()
	if a.srv != nil {
		if err := a.srv.Close(); err != nil {
			a.log.Warn("failed to clean spool", logger.Err(err))
		}
	}
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			a.log.Warn("failed to close run ledger", logger.Err(err))
		}
	}
}

// serve runs the HTTP server on ln and the ledger follower until ctx is
// cancelled. Request contexts derive from ctx, so open event streams end when
// shutdown begins.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)
	httpSrv := &http.Server{
		Handler:           a.srv,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	if a.ledger != nil {
		events := a.ctrl.Subscribe()
		g.Go(func() error {
			defer a.ctrl.Unsubscribe(events)
			a.ledger.Follow(ctx, events)
			return nil
		})
	}
	g.Go(func() error {
		if err := httpSrv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// start serves the workspace until ctx is cancelled and releases every
// resource before returning.
func start(ctx context.Context, opts *Options) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.close()

	ln, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.Addr(), err)
	}

	banner(a.cfg)
	if err := a.serve(ctx, ln); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

func banner(cfg *config.Config) {
	displayHost := cfg.View.Host
	if displayHost == "0.0.0.0" {
		displayHost = "localhost"
	}
	baseURL := fmt.Sprintf("http://%s:%d", displayHost, cfg.View.Port)

	fmt.Println()
	fmt.Printf("droneflow workspace starting...\n")
	fmt.Printf("  Server:  %s\n", baseURL)
	fmt.Printf("  Backend: %s\n", cfg.Backend.URL)
	fmt.Println()
	fmt.Printf("  Pages:   %s/, %s/workspace\n", baseURL, baseURL)
	fmt.Printf("  Docs:    %s/docs\n", baseURL)
	fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
	fmt.Println()
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		ctx, cancel := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			if err := start(ctx, opts); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(cancel)
	})

	cli.Root().Use = "droneflow"
	cli.Root().Short = "Upload LiDAR point clouds for terrain analysis and map the results"
	cli.Root().Version = api.Version

	cli.Root().AddCommand(runCommand(), stubBackendCommand(), specCommand())
	cli.Run()
}

// run subcommand: headless upload and analysis of one file
func runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file.las|file.laz>",
		Short: "Upload and analyse a point cloud without the workspace UI",
		Args:  cobra.ExactArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			retries, _ := cmd.Flags().GetInt("retries")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			if err := runHeadless(cmd.Context(), opts, args[0], retries, timeout); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}),
	}
	cmd.Flags().IntP("retries", "r", 0, "Retry processing this many times on failure")
	cmd.Flags().Duration("timeout", 30*time.Minute, "Overall deadline for upload and processing")
	return cmd
}

func runHeadless(ctx context.Context, opts *Options, path string, retries int, timeout time.Duration) error {
	if err := backend.CheckFormat(path); err != nil {
		return err
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	log := logger.New("droneflow", cfg.Verbose)
	rep := report.New(report.DefaultTheme, 0)

	ctrl := newController(cfg, log)
	defer ctrl.Close()

	led, err := ledger.Open(log.WithComponent("ledger"))
	if err != nil {
		return fmt.Errorf("failed to open run ledger: %w", err)
	}
	defer led.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	events := ctrl.Subscribe()
	defer ctrl.Unsubscribe(events)

	settle := func(phases ...workflow.Phase) (workflow.Event, error) {
		ev, err := workflow.Await(ctx, events, phases...)
		if err != nil {
			return ev, err
		}
		if ev.Phase == workflow.Analyzed || ev.Phase == workflow.Failed {
			if err := led.Record(ctx, ev); err != nil {
				log.Warn("failed to record run", logger.Err(err))
			}
		}
		return ev, nil
	}

	if _, err := ctrl.Select(backend.LocalFile{Path: path}); err != nil {
		return err
	}
	ev, err := settle(workflow.ReadyToProcess, workflow.Failed)
	if err != nil {
		return err
	}

	// A failed upload leaves nothing to process.
	if ev.Phase != workflow.Failed {
		for attempt := 0; attempt <= retries; attempt++ {
			if attempt > 0 {
				log.Info("retrying analysis", logger.F("attempt", attempt))
			}
			if _, err := ctrl.Start(); err != nil {
				return err
			}
			if ev, err = settle(workflow.Analyzed, workflow.Failed); err != nil {
				return err
			}
			if ev.Phase == workflow.Analyzed {
				break
			}
		}
	}

	fmt.Println(rep.Event(ev))
	if entries, err := led.List(ctx, 0, 0); err == nil {
		fmt.Println()
		fmt.Println(rep.Runs(entries))
	}
	if ev.Phase == workflow.Failed {
		return errors.New(ev.Snapshot.Notice.Message)
	}
	return nil
}

// stub-backend subcommand: serve canned terrain results for demos
func stubBackendCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stub-backend",
		Short: "Serve a canned terrain-analysis backend on --listen",
		Run: func(cmd *cobra.Command, args []string) {
			addr, _ := cmd.Flags().GetString("listen")
			stub := backendtest.New("/api")

			fmt.Printf("stub backend listening on http://%s/api\n", addr)
			srv := &http.Server{Addr: addr, Handler: stub, ReadHeaderTimeout: 10 * time.Second}
			if err := srv.ListenAndServe(); err != nil {
				fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
				os.Exit(1)
			}
		},
	}
	cmd.Flags().StringP("listen", "l", "127.0.0.1:8000", "Address to listen on")
	return cmd
}

// spec subcommand: export OpenAPI spec
func specCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			useYAML, _ := cmd.Flags().GetBool("yaml")
			output, err := exportSpec(opts, useYAML)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	cmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	return cmd
}

func exportSpec(opts *Options, useYAML bool) ([]byte, error) {
	a, err := newApp(opts)
	if err != nil {
		return nil, err
	}
	defer a.close()

	spec := a.srv.OpenAPI()
	var output []byte
	if useYAML {
		output, err = yaml.Marshal(spec)
	} else {
		output, err = json.MarshalIndent(spec, "", "  ")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal spec: %w", err)
	}
	return output, nil
}
