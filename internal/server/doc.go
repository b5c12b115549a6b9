// Package server provides HTTP routing, middleware, and an in-memory sandbox of the audiobook store API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns, so path wildcards like
// {customerId} are available to handlers through [http.Request.PathValue].
//
// # Sandbox
//
// [Sandbox] holds a catalog, customers, carts, libraries, and saved cards in memory and serves the
// same REST contract the client speaks. `audx sandbox` runs it for local demos, and integration tests
// point a real [services.StoreClient] at it through httptest.
//
// Catalog audio files are served by [MediaHandler] from /media/, so playback and downloads work
// without any external host.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
