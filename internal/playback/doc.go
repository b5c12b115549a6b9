// Package playback drives a single audio source and remembers where the listener stopped.
//
// # Transport
//
// [Transport] owns one [Element] at a time. Binding a new [Source] detaches the previous one, so two
// sources never play together. Its lifecycle is
//
//	Idle → Loading → Ready ⇄ Playing ⇄ Paused → Ended
//
// with Ready, Playing, Paused, and Ended returning to Idle on [Transport.Unbind] or a media error.
// Every control is a no-op while nothing is bound.
//
// # Checkpoints
//
// While playing, a checkpointer writes the current offset to a [PositionStore] once per interval
// (one second by default). It is started on play and stopped synchronously on pause, unbind, end, or
// error: once stop returns, no further write happens. Write failures are logged at debug level only.
//
// # Resume
//
// On load, a stored offset for the item wins over the caller's hint (normally the server's
// lastPosition). A malformed stored offset means no resume. The start position is clamped into
// [0, duration] once the duration is known.
package playback
