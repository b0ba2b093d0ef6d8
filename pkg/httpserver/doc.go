// Package httpserver runs the daemon's HTTP listener with graceful shutdown
// and provides the health-check handler.
//
// Run binds the configured address, closes Ready once listening and serves
// until its context is done. Request contexts derive from that context, so
// long-lived event streams end when the daemon stops instead of holding up
// shutdown. Shutdown waits up to the shutdown timeout and then closes the
// remaining connections.
//
//	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
//	g.Go(func() error { return srv.Run(ctx, router) })
//
// Listen and serve failures are wrapped with ErrStart and shutdown failures
// with ErrShutdown.
package httpserver
