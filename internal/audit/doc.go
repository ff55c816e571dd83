// Package audit implements async event dispatching for session codec decisions.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, func, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured record of a rejected cookie, a fatal codec failure, or a key
//     rotation.
//
// # What this package must NOT do
//
//   - Decide which events to emit; the engine does that.
//   - Import goSession or any sibling internal package.
//   - Carry key material or cookie values in events.
package audit
