// Package server - HTTP-Router und Server-Setup fuer "rollout serve"
// Beinhaltet: Server-Struct, Router-Registrierung, Server-Start
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ollama/rollout/attention"
	"github.com/ollama/rollout/envconfig"
	"github.com/ollama/rollout/version"
)

var mode string = gin.ReleaseMode

// Server verarbeitet Rollout-Anfragen. Er haelt keinen veraenderlichen Zustand
// ausser der (lesend genutzten) Loader-Registry.
type Server struct {
	addr      net.Addr
	registry  *attention.Registry
	inputSize int
	patchSize int
	maxUpload int64
}

func init() {
	switch mode {
	case gin.DebugMode:
	case gin.ReleaseMode:
	case gin.TestMode:
	default:
		mode = gin.ReleaseMode
	}

	gin.SetMode(mode)
}

// NewServer erstellt einen Server mit Werten aus der Umgebung.
func NewServer(addr net.Addr) *Server {
	return &Server{
		addr:      addr,
		registry:  attention.DefaultRegistry,
		inputSize: int(envconfig.InputSize()),
		patchSize: int(envconfig.PatchSize()),
		maxUpload: int64(envconfig.MaxUpload()),
	}
}

// GenerateRoutes erstellt und konfiguriert den HTTP-Router
func (s *Server) GenerateRoutes() http.Handler {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowWildcard = true
	corsConfig.AllowBrowserExtensions = true
	corsConfig.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"User-Agent",
		"Accept",
		"X-Requested-With",
		requestIDHeader,
	}
	corsConfig.ExposeHeaders = []string{requestIDHeader}
	corsConfig.AllowOrigins = envconfig.AllowedOrigins()

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		cors.New(corsConfig),
		allowedHostsMiddleware(s.addr),
	)

	// General
	r.HEAD("/", func(c *gin.Context) { c.String(http.StatusOK, "rollout is running") })
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "rollout is running") })
	r.HEAD("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"version": version.Version}) })
	r.GET("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"version": version.Version}) })

	// Rollout
	r.GET("/api/formats", s.FormatsHandler)
	r.POST("/api/rollout", s.RolloutHandler)

	return r
}

// Serve startet den HTTP-Server auf ln und beendet ihn bei SIGINT/SIGTERM
func Serve(ln net.Listener) error {
	slog.Info("server config", "env", envconfig.Values())

	s := NewServer(ln.Addr())
	srvr := &http.Server{
		Handler:           s.GenerateRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srvr.Shutdown(shutdown); err != nil {
			slog.Warn("server shutdown", "error", err)
		}
	}()

	slog.Info(fmt.Sprintf("Listening on %s (version %s)", ln.Addr(), version.Version))
	if err := srvr.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
