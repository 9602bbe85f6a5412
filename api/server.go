package api

import (
	"context"
	"errors"
	"net"
	"net/http"

	"go.uber.org/zap"
)

// Server runs the status API alongside a download run.
type Server struct {
	srv *http.Server
	log *zap.Logger
}

func NewServer(addr string, handler http.Handler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{srv: &http.Server{Addr: addr, Handler: handler}, log: log}
}

// Start binds the listener synchronously so address errors surface to the
// caller, then serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.log.Info("status API listening", zap.String("addr", ln.Addr().String()))

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("status API stopped", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
