package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/moolen/vigil/internal/logging"
	"github.com/moolen/vigil/internal/mcp"
	"github.com/moolen/vigil/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	httpAddr        string
	transportType   string
	mcpEndpointPath string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the analysis tools over the Model Context Protocol",
	Long: `Start an MCP server that exposes the analysis tools to AI assistants.

Supports two transport modes:
  - stdio: Standard input/output mode (default, for subprocess-based MCP clients)
  - http: streamable HTTP mode with a /health endpoint`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&httpAddr, "http-addr", ":8082", "HTTP server address (host:port)")
	mcpCmd.Flags().StringVar(&transportType, "transport", "stdio", "Transport type: stdio or http")
	mcpCmd.Flags().StringVar(&mcpEndpointPath, "mcp-endpoint", "/mcp", "HTTP endpoint path for MCP requests")
}

func runMCP(cmd *cobra.Command, args []string) error {
	logger := logging.GetLogger("mcp")
	logger.Info("Starting MCP server (transport: %s)", transportType)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := startRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.stop()

	tb, err := pipeline.NewToolbox(ctx, cfg, rt.deps)
	if err != nil {
		return err
	}
	mcpServer := mcp.NewServer(tb, Version).MCPServer()

	switch transportType {
	case "stdio":
		if err := server.ServeStdio(mcpServer); err != nil {
			logger.Error("Stdio transport error: %v", err)
			return err
		}
	case "http":
		return serveHTTP(ctx, mcpServer, logger)
	default:
		return errors.New("invalid transport type " + transportType + " (must be 'stdio' or 'http')")
	}

	logger.Info("Server stopped")
	return nil
}

func serveHTTP(ctx context.Context, mcpServer *server.MCPServer, logger *logging.Logger) error {
	endpointPath := mcpEndpointPath
	if endpointPath == "" {
		endpointPath = "/mcp"
	} else if endpointPath[0] != '/' {
		endpointPath = "/" + endpointPath
	}
	logger.Info("Starting HTTP server on %s (endpoint: %s)", httpAddr, endpointPath)

	httpSrv := &http.Server{
		Addr:              httpAddr,
		ReadHeaderTimeout: 5 * time.Second,
	}
	streamableServer := server.NewStreamableHTTPServer(
		mcpServer,
		server.WithEndpointPath(endpointPath),
		server.WithStateLess(true),
	)
	httpSrv.Handler = newMCPMux(endpointPath, streamableServer)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		logger.Error("Server error: %v", err)
		return err
	}
}

// newMCPMux routes the MCP endpoint and a plain /health probe.
func newMCPMux(endpointPath string, mcpHandler http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle(endpointPath, mcpHandler)
	return mux
}
