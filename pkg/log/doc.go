// Package log captures AVRCP protocol events for debugging and analysis.
//
// It is separate from operational logging (slog): a Logger receives one
// Event per envelope, decoded PDU, session state change, pass-through key
// decision and error, giving a complete machine-readable trace of a
// connection.
//
// # Basic Usage
//
//	// Console output while developing
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// Binary capture file
//	fl, _ := log.NewFileLogger("/var/log/avrcp/sink.alog")
//	cfg.ProtocolLogger = fl
//
//	// Both
//	cfg.ProtocolLogger = log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// # File Format
//
// Capture files are a stream of CBOR-encoded Events with integer keys
// (.alog extension). Reader iterates them with an optional Filter; the
// avrcp-log tool views, filters, summarizes and exports them.
package log
