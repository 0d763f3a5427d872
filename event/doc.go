// Package event exposes native event arrays to Go without copying.
//
// After every step the native layer publishes its events as {pointer, count}
// pairs into memory it owns. A View wraps one pair as a read-only,
// bounds-checked sequence of pinned records. Views never free or mutate the
// memory they point into.
//
// A view is meaningful for one step only. The managed facade attaches a Lease
// to every view it hands out; when the world steps again or is destroyed the
// lease advances and every element access through older views fails with a
// ViewExpired error instead of reading recycled memory. Views built with
// FromNative alone carry no lease and leave the lifetime rule to the caller.
//
// The record types in this package (BodyMoveEvent, ContactBeginTouchEvent, ...)
// mirror the native structs byte for byte. They hold no Go pointers, so a
// record copied out of a view is plain data. Embedded handles may already be
// stale when read; revalidate them through the world before use.
package event
