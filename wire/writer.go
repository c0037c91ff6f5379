package wire

import "encoding/binary"

// Writer is a single-threaded, non-owning cursor over a byte slice that the
// caller has already sized to hold the intended output (see
// pdu.Unit.HeaderSize). Writer never grows buf; writing past its end
// panics — serialization assumes the caller consulted HeaderSize first.
type Writer struct {
	buf []byte
	pos int
}

// NewWriter wraps buf for sequential writes starting at offset 0.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// Pos returns the number of bytes written so far.
func (w *Writer) Pos() int {
	return w.pos
}

// Write copies src into the buffer and advances the cursor.
func (w *Writer) Write(src []byte) {
	if len(src) > len(w.buf)-w.pos {
		panic("wire: write past end of buffer")
	}
	w.pos += copy(w.buf[w.pos:], src)
}

// WriteByte writes a single byte.
func (w *Writer) WriteByte(b byte) {
	w.buf[w.pos] = b
	w.pos++
}

// WriteBEUint16 writes v big-endian.
func (w *Writer) WriteBEUint16(v uint16) {
	binary.BigEndian.PutUint16(w.buf[w.pos:], v)
	w.pos += 2
}

// WriteBEUint32 writes v big-endian.
func (w *Writer) WriteBEUint32(v uint32) {
	binary.BigEndian.PutUint32(w.buf[w.pos:], v)
	w.pos += 4
}

// WriteBEUint64 writes v big-endian.
func (w *Writer) WriteBEUint64(v uint64) {
	binary.BigEndian.PutUint64(w.buf[w.pos:], v)
	w.pos += 8
}

// WriteLEUint16 writes v little-endian.
func (w *Writer) WriteLEUint16(v uint16) {
	binary.LittleEndian.PutUint16(w.buf[w.pos:], v)
	w.pos += 2
}

// WriteLEUint32 writes v little-endian.
func (w *Writer) WriteLEUint32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[w.pos:], v)
	w.pos += 4
}

// WriteLEUint64 writes v little-endian.
func (w *Writer) WriteLEUint64(v uint64) {
	binary.LittleEndian.PutUint64(w.buf[w.pos:], v)
	w.pos += 8
}
