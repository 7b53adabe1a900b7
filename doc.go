// Package nextmqtt implements an MQTT v5.0 client: wire codec, session
// state machine, and QoS delivery guarantees, with pluggable transport,
// logging, and metrics.
//
// A Client is built with New and driven through Connect, Subscribe,
// Unsubscribe, Publish, and Disconnect. The underlying session domain is a
// single mutex-guarded actor: state transitions happen under one lock and
// callers block only on their own operation's completion, never on each
// other's.
package nextmqtt
