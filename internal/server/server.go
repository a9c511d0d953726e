package server

import (
	"context"
	"net"
	"net/http"
	"time"
)

type Config struct {
	Host         string        `envconfig:"HTTP_HOST" default:"0.0.0.0"`
	Port         string        `envconfig:"HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT"`
}

type Server struct {
	srv *http.Server
}

// NewServer wraps http.Server. A zero WriteTimeout is deliberate for
// the SSE stream endpoint, which holds the response open.
func NewServer(cfg Config, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

func (s *Server) Run() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
