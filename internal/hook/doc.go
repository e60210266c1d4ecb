// Package hook implements the hook specification registry and call dispatch.
//
// A Registry holds named specifications (Spec) and the implementations (Impl)
// plugins attach to them. Calls run implementations in reverse registration
// order, so the most recently registered plugin runs first. Wrapper
// implementations surround all plain ones.
//
// Historic specs keep an append-only log of their calls. An implementation
// attached after a historic call still sees that call: the log is replayed to
// it before AddImpl returns.
//
// The registry is not safe for concurrent use. Hook implementations may
// register further plugins or specs while a call is in progress.
package hook
