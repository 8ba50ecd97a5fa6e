// Package mqtt implements the core session engine of an MQTT v3.1.1 client
// meant to run on top of a non-blocking, event-driven byte transport such as
// a cellular modem's AT-command stack. If you are new to this package start
// by reading definitions.go, then client.go.
//
// The core never blocks: every exported method either returns immediately
// with an error or a nil error after enqueueing work, and every reaction to
// the network happens inside the Transport callbacks registered through
// EventSink. There are no goroutines started by this package; callers
// supply a Transport implementation (see the transport/ subpackages for two
// reference adapters) that is responsible for delivering those callbacks
// serialized with respect to Client's own exported methods.
package mqtt
