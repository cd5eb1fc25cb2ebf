// Package wire implements the AVRCP vendor-dependent PDU format.
//
// Every metadata PDU starts with a fixed four byte header followed by the
// PDU parameters:
//
//	+--------+-------------+------------------+------------+
//	| PDU ID | packet type | parameter length | parameters |
//	|   1    |      1      |   2 (big-endian) |     N      |
//	+--------+-------------+------------------+------------+
//
// The low two bits of the packet type select SINGLE, START, CONTINUE or
// END. A single control packet carries at most MaxPacketLength bytes;
// longer responses are fragmented by package fragment.
//
// # Commands and Responses
//
// Commands and responses are modelled as closed sets of structs that
// implement the Command and Response interfaces. BuildCommand and
// BuildResponse produce a complete single packet, ParseCommand and
// ParseResponse decode one. Decoding failures are reported as *Error
// values carrying the Status to send back in a REJECT.
//
// # Pass-through
//
// Pass-through (panel subunit) frames are not vendor-dependent PDUs; they
// are encoded by EncodePassThrough and ParsePassThrough.
package wire
