// Package transport defines the boundary between the AVRCP engine and the
// connection-oriented link that carries its messages.
//
// The engine never touches the link directly. Outbound it calls
// Transport.Send with a Message envelope (handle, label, ctype, opcode,
// payload); inbound the link calls Receiver.Deliver. Connection setup and
// teardown are reported to the engine by whoever owns the link.
//
// Two transports are provided:
//   - Loopback: an in-memory pair with ordered asynchronous delivery,
//     used by tests and the simulator
//   - StreamTransport: envelopes in length-prefixed frames over any
//     io.ReadWriteCloser such as a net.Conn
//
// Server and Client set up StreamTransports over TCP. A Server is itself
// a Transport for every connection it accepted, routing on the handle it
// assigned.
//
// # Frame Layout
//
//	+----------------+--------+-------+------+--------+---------+
//	| length (4, BE) | handle | label | code | opcode | payload |
//	+----------------+--------+-------+------+--------+---------+
package transport
