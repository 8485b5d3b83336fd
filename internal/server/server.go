// package server contains the middleware chain, handlers, and per-service apps
// for the listening-stats fleet
package server

import (
	"net/http"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// The resilience envelope (fault injection, rate limiting), CORS, auth, logging,
// and metrics are all expressed as Middleware.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers in the listening-stats services.
// Implementations handle specific endpoints (login, callback, aggregation).
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}
