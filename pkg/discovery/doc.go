// Package discovery advertises and finds AVRCP endpoints that run over the
// TCP stream transport, using mDNS/DNS-SD.
//
// # Service (_avrcp._tcp)
//
// An endpoint that accepts connections advertises one instance. The
// instance name is user-chosen (max 63 bytes) and the port is the TCP
// listen port. TXT records describe what the endpoint offers:
//
//   - addr: the device address the endpoint uses as its identity
//     (00:11:22:AA:BB:CC)
//   - role: local roles as a bitmask in hex (1 target, 2 controller)
//   - feat: peer feature bits in hex, the value a connecting side should
//     pass with the connection
//   - name: optional friendly name
//
// A browser aggregates the addresses reported on each interface into one
// Service per instance name.
package discovery
