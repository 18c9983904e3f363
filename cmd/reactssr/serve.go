package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/cryguy/reactssr"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	var (
		flags contextFlags
		addr  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rendered components over HTTP (development)",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, logger, err := flags.renderer(prometheus.DefaultRegisterer)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if err := r.Warm(); err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           newRouter(r, logger, prometheus.DefaultGatherer),
				ReadHeaderTimeout: 10 * time.Second,
			}
			logger.Info("listening", zap.String("addr", addr))
			return srv.ListenAndServe()
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

// compressionLevel applies to both brotli and gzip.
const compressionLevel = 5

// newRouter exposes:
//
//	GET /components/{name}?props={json}&tag=span&ujs=1
//	GET /react_ujs.js
//	GET /metrics
//
// Fragments and the client script are compressed with brotli when the client
// accepts it, gzip or deflate otherwise.
func newRouter(r *reactssr.Renderer, logger *zap.Logger, gatherer prometheus.Gatherer) http.Handler {
	compressor := middleware.NewCompressor(compressionLevel)
	compressor.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(compressor.Handler)

	router.Get("/components/{name}", func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "name")
		props := map[string]any{}
		if raw := req.URL.Query().Get("props"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &props); err != nil {
				http.Error(w, fmt.Sprintf("invalid props: %v", err), http.StatusBadRequest)
				return
			}
		}
		var opts []reactssr.Option
		if tag := req.URL.Query().Get("tag"); tag != "" {
			opts = append(opts, reactssr.Tag(tag))
		}

		render := r.ReactComponent
		if req.URL.Query().Get("ujs") != "" {
			render = r.ReactDirective
		}
		fragment, err := render(name, props, opts...)
		if err != nil {
			logger.Warn("render failed", zap.String("component", name), zap.Error(err))
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(fragment))
	})

	router.Method(http.MethodGet, "/react_ujs.js", reactssr.ClientScriptHandler(r.Names()))
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return router
}

func statusFor(err error) int {
	var (
		notFound *reactssr.ComponentNotFoundError
		badName  *reactssr.InvalidComponentNameError
		ser      *reactssr.SerializationError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &badName), errors.As(err, &ser):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
