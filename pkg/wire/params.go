package wire

import "encoding/binary"

// paramReader is a bounds-checked cursor over PDU parameters. The first
// failed read sticks; callers check err once after decoding.
type paramReader struct {
	pdu PduID
	buf []byte
	off int
	err *Error
}

func newParamReader(pdu PduID, b []byte) *paramReader {
	return &paramReader{pdu: pdu, buf: b}
}

func (r *paramReader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if len(r.buf)-r.off < n {
		r.err = newError(r.pdu, StatusInternalError, "truncated at offset %d (need %d, have %d)", r.off, n, len(r.buf)-r.off)
		return false
	}
	return true
}

func (r *paramReader) u8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *paramReader) u16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *paramReader) u24() uint32 {
	if !r.need(3) {
		return 0
	}
	b := r.buf[r.off:]
	r.off += 3
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

func (r *paramReader) u32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *paramReader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	v := make([]byte, n)
	copy(v, r.buf[r.off:])
	r.off += n
	return v
}

func (r *paramReader) remaining() int {
	return len(r.buf) - r.off
}

// fail records a status error unless one is already set.
func (r *paramReader) fail(status Status, format string, args ...any) {
	if r.err == nil {
		r.err = newError(r.pdu, status, format, args...)
	}
}

// done reports the sticky error, or InternalError if bytes are left over.
func (r *paramReader) done() error {
	if r.err != nil {
		return r.err
	}
	if r.remaining() != 0 {
		return newError(r.pdu, StatusInternalError, "%d trailing bytes", r.remaining())
	}
	return nil
}

// paramWriter accumulates PDU parameters.
type paramWriter struct {
	buf []byte
}

func (w *paramWriter) u8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *paramWriter) u16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

func (w *paramWriter) u24(v uint32) {
	w.buf = append(w.buf, byte(v>>16), byte(v>>8), byte(v))
}

func (w *paramWriter) u32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *paramWriter) raw(b []byte) {
	w.buf = append(w.buf, b...)
}
