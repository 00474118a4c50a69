package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Server is the lifecycle contract shared by the serving components.
type Server interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type HTTPServer struct {
	handler http.Handler
	opts    Options
	srv     *http.Server
}

var _ Server = (*HTTPServer)(nil)

func NewHTTPServer(handler http.Handler, opts Options) *HTTPServer {
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	return &HTTPServer{
		handler: handler,
		opts:    opts,
	}
}

func (h *HTTPServer) Start(ctx context.Context) error {
	h.srv = &http.Server{
		Addr:         h.opts.Addr,
		Handler:      h.handler,
		ReadTimeout:  h.opts.ReadTimeout,
		WriteTimeout: h.opts.WriteTimeout,
		IdleTimeout:  h.opts.IdleTimeout,
	}

	var eg errgroup.Group
	eg.Go(func() error {
		err := h.srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	return eg.Wait()
}

func (h *HTTPServer) Stop(ctx context.Context) error {
	return h.srv.Shutdown(ctx)
}
