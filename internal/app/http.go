package app

import (
	"time"

	"github.com/valyala/fasthttp"

	"github.com/Uke-Messaging/uke-pallet/pkg/api"
	"github.com/Uke-Messaging/uke-pallet/pkg/api/routes"
)

// Handler builds the full request pipeline: gateway, router and handlers.
func (a *App) Handler() fasthttp.RequestHandler {
	h := &routes.Handlers{
		Ledger:      a.ledger,
		Snapshots:   a.snaps,
		CallTimeout: a.eff.Config.Events.PublishTimeout.Duration(),
	}
	return api.Handler(a.gw, h, a.isReady)
}

func (a *App) isReady() bool {
	return a.ready.Load() && a.st.Ready()
}

// startHTTP starts the fasthttp server, returning a channel that delivers
// its terminal error.
func (a *App) startHTTP() <-chan error {
	cfg := a.eff.Config
	const (
		readBufferSize       = 64 * 1024
		readTimeout          = 10 * time.Second
		writeTimeout         = 10 * time.Second
		idleTimeout          = 30 * time.Second
		maxKeepaliveDuration = 2 * time.Minute
	)
	a.srvFast = &fasthttp.Server{
		Name:                 "uke",
		Handler:              a.Handler(),
		ReadBufferSize:       readBufferSize,
		MaxRequestBodySize:   int(cfg.Server.MaxRequestBody.Int64()),
		ReadTimeout:          readTimeout,
		WriteTimeout:         writeTimeout,
		IdleTimeout:          idleTimeout,
		MaxKeepaliveDuration: maxKeepaliveDuration,
	}

	errCh := make(chan error, 1)
	addr := a.eff.Addr
	tls := cfg.Server.TLS
	go func() {
		if tls.CertFile != "" && tls.KeyFile != "" {
			errCh <- a.srvFast.ListenAndServeTLS(addr, tls.CertFile, tls.KeyFile)
			return
		}
		errCh <- a.srvFast.ListenAndServe(addr)
	}()
	return errCh
}
