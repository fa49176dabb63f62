package server

import (
	"context"
	"fmt"
	"net"
	"tft-tracker/internal/config"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const (
	readTimeout        = 10 * time.Second
	writeTimeout       = 30 * time.Second
	idleTimeout        = 60 * time.Second
	maxRequestBodySize = 1 << 20
)

// Server serves the HTTP API on fasthttp.
type Server struct {
	srv    *fasthttp.Server
	addr   string
	logger zerolog.Logger
}

func NewServer(cfg *config.Config, handler *Handler, logger zerolog.Logger) *Server {
	return &Server{
		srv: &fasthttp.Server{
			Handler:            fasthttpadaptor.NewFastHTTPHandler(handler.Routes()),
			Name:               "tft-tracker",
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			IdleTimeout:        idleTimeout,
			MaxRequestBodySize: maxRequestBodySize,
			Logger:             fasthttpLogger{logger: logger},
		},
		addr:   fmt.Sprintf(":%s", cfg.ServerPort),
		logger: logger,
	}
}

func (s *Server) Addr() string {
	return s.addr
}

// Start binds the listener synchronously so that port errors fail startup,
// then serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	go func() {
		s.logger.Info().Str("addr", s.addr).Msg("server starting")
		if err := s.srv.Serve(ln); err != nil {
			s.logger.Error().Err(err).Msg("server failed")
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.ShutdownWithContext(ctx)
}

type fasthttpLogger struct {
	logger zerolog.Logger
}

func (l fasthttpLogger) Printf(format string, args ...any) {
	l.logger.Warn().Msgf(format, args...)
}
