package main

import (
	"context"
	"net"
	"net/http"
	"time"
)

// newHTTPServer builds the listener-facing server. Request contexts derive
// from context.Background so a shutdown signal lets Shutdown drain open
// chat streams instead of cancelling them mid-step.
func newHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled: a chat response stays open for every step
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return context.Background() },
	}
}
