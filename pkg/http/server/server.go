package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

type Server interface {
	Serve() error
	ServeWithReadyCallback(onReady func()) error
	Addr() string
	Shutdown(ctx context.Context) error
}

type server struct {
	httpSrv *http.Server
	log     *zap.Logger
	addr    chan string
}

func newServer(log *zap.Logger, conf Config, handler http.Handler) *server {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(conf.Port),
		Handler:           handler,
		ReadHeaderTimeout: conf.Connection.ReadHeaderTimeout,
		ReadTimeout:       conf.Connection.ReadTimeout,
		WriteTimeout:      conf.Connection.WriteTimeout,
		IdleTimeout:       conf.Connection.IdleTimeout,
		MaxHeaderBytes:    conf.Connection.MaxHeaderBytes,
	}
	return &server{
		httpSrv: srv,
		log:     log,
		addr:    make(chan string, 1),
	}
}

func (s *server) Serve() error {
	return s.ServeWithReadyCallback(nil)
}

// ServeWithReadyCallback calls onReady once the listener is bound, then
// blocks until the server is shut down.
func (s *server) ServeWithReadyCallback(onReady func()) error {
	ln, err := net.Listen("tcp", s.httpSrv.Addr)
	if err != nil {
		s.log.Error("failed to listen", zap.Error(err))
		return err
	}
	s.addr <- ln.Addr().String()
	s.log.Info("starting HTTP server", zap.String("addr", ln.Addr().String()))

	if onReady != nil {
		onReady()
	}

	if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error("HTTP server stopped with error", zap.Error(err))
		return err
	}
	return nil
}

// Addr blocks until the listener is bound and returns its address.
func (s *server) Addr() string {
	addr := <-s.addr
	s.addr <- addr
	return addr
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
