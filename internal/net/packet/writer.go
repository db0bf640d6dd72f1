package packet

import (
	"encoding/binary"
	"math"
)

// Writer builds a packet payload. All multi-byte writes are little-endian.
// Strings are written into fixed-width NUL-padded fields, matching the
// client's char[] struct members.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

// WriteC writes 1 byte.
func (w *Writer) WriteC(v byte) {
	w.buf = append(w.buf, v)
}

// WriteH writes 2 bytes little-endian.
func (w *Writer) WriteH(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteD writes 4 bytes little-endian (signed or unsigned via cast).
func (w *Writer) WriteD(v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	w.buf = append(w.buf, b[:]...)
}

// WriteDU writes 4 bytes little-endian unsigned.
func (w *Writer) WriteDU(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteF writes 4 bytes as a little-endian IEEE-754 float32.
func (w *Writer) WriteF(v float32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	w.buf = append(w.buf, b[:]...)
}

// WriteS writes s into an n-byte field, truncated if too long and
// NUL-padded if too short.
func (w *Writer) WriteS(s string, n int) {
	field := make([]byte, n)
	copy(field, s)
	w.buf = append(w.buf, field...)
}

// WriteBytes writes raw bytes.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// Bytes returns the payload content.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the current payload length.
func (w *Writer) Len() int {
	return len(w.buf)
}
