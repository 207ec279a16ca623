package commands

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/spf13/cobra"

	"github.com/arcology-network/mep/internal/config"
	"github.com/arcology-network/mep/internal/debugserver"
	"github.com/arcology-network/mep/internal/mep"
	"github.com/arcology-network/mep/internal/trace"
)

// ServeCmd runs a long-lived process exposing the debug/introspection
// surface; it holds no live endpoints of its own until a PSM is wired in
// by an embedding application, and exists so operators have something to
// point the debug server at during development.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the debug/introspection HTTP server",
	RunE:  runServe,
}

func init() {
	RootCmd.AddCommand(ServeCmd)
}

type emptyRegistry struct{}

func (emptyRegistry) Lookup(id string) (*mep.Base, bool) { return nil, false }

func runServe(cmd *cobra.Command, args []string) error {
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC, "caller", kitlog.DefaultCaller)

	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	tracer := trace.New(trace.DefaultCapacity)
	tracer.SetActive(cfg.TraceEnabled)
	tracer.EnableTool(trace.ContextTracer, true)

	srv := debugserver.New(emptyRegistry{}, tracer)

	if cfg.DebugListenAddr == "" {
		logger.Log("msg", "debug server disabled: empty debug_listen_addr")
		return nil
	}
	logger.Log("msg", "starting debug server", "addr", cfg.DebugListenAddr)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		server := &http.Server{Addr: cfg.DebugListenAddr, Handler: srv}
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-done:
		logger.Log("msg", "shutting down")
		time.Sleep(100 * time.Millisecond)
		return nil
	case err := <-errCh:
		return err
	}
}
