// Package services implements the client side of the audiobook store's REST contract.
//
// # Raw transport
//
// [APIService] performs JSON requests against the store's base URL. Every request carries an
// X-Request-ID header and passes through an optional [rate.Limiter]. Transport failures wrap
// [shared.ErrNetworkFailure]; non-2xx responses become a [*shared.RemoteError] whose message is
// taken from a string body, else the "message" field, else the "error" field.
//
// # Store client
//
// [StoreClient] maps each endpoint to a typed method. It is the only place that knows the wire
// shapes: library entries arrive either as {audioId} or {audiobook:{audioId}} and are normalized
// into one canonical [models.LibraryEntry] before any caller sees them.
//
// # Catalog cache
//
// [CachedCatalog] decorates the catalog endpoints with a TTL cache for listings, a bounded LRU
// for single items, and singleflight so concurrent lookups of one item share a request.
package services
