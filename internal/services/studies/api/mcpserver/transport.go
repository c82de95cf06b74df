package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"

	"github.com/louisbranch/studies/internal/platform/timeouts"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// TransportStdio serves a single client over standard input and output.
	TransportStdio = "stdio"
	// TransportHTTP serves the streamable HTTP transport.
	TransportHTTP = "http"

	defaultHTTPAddr = "localhost:8093"
)

// Config selects how the server is exposed.
type Config struct {
	Transport string
	HTTPAddr  string
}

// Run serves s over the configured transport and blocks until ctx ends.
func Run(ctx context.Context, cfg Config, s *Server) error {
	if cfg.Transport == "" {
		cfg.Transport = TransportStdio
	}

	switch cfg.Transport {
	case TransportStdio:
		return s.Serve(ctx, &mcp.StdioTransport{})
	case TransportHTTP:
		return runHTTP(ctx, cfg.HTTPAddr, s)
	default:
		return fmt.Errorf("transport %q is not supported", cfg.Transport)
	}
}

// Handler returns the HTTP handler for s: the MCP endpoint at /mcp and a
// health check at /mcp/health. Each new session gets its own screen, closed
// when the client deletes the session or it stays idle past
// timeouts.SessionIdle.
func Handler(s *Server) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		sc, err := s.openScreen()
		if err != nil {
			log.Printf("Open MCP session: %v", err)
			return nil
		}
		return sc.mcpServer
	}, &mcp.StreamableHTTPOptions{SessionTimeout: timeouts.SessionIdle}))
	mux.HandleFunc("/mcp/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func runHTTP(ctx context.Context, addr string, s *Server) error {
	// Default to localhost-only binding.
	if addr == "" {
		addr = defaultHTTPAddr
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return serveHTTP(ctx, listener, s)
}

func serveHTTP(ctx context.Context, listener net.Listener, s *Server) error {
	httpServer := &http.Server{
		Handler:           Handler(s),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	log.Printf("Starting MCP HTTP server on %s", listener.Addr())
	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		log.Printf("Shutting down MCP HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown HTTP server: %w", err)
		}
		return nil
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		return fmt.Errorf("HTTP server error: %w", err)
	}
}
