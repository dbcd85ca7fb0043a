package wire

import (
	"encoding/binary"
	"fmt"
)

// writer appends fields to a growable buffer using the fixed little set of
// primitives this wire format needs: bool, u8, i32, length-prefixed string,
// length-prefixed bytes. All multi-byte integers are big-endian (spec.md
// §6.1).
type writer struct {
	buf []byte
}

func newWriter() *writer { return &writer{buf: make([]byte, 0, 64)} }

func (w *writer) bytes() []byte { return w.buf }

func (w *writer) putBool(b bool) {
	if b {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *writer) putU8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *writer) putI32(v int32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) putString(s string) {
	w.putBytes([]byte(s))
}

func (w *writer) putBytes(b []byte) {
	var l [4]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(b)))
	w.buf = append(w.buf, l[:]...)
	w.buf = append(w.buf, b...)
}

// putOptional writes a presence byte followed by fn's output iff present.
func (w *writer) putOptional(present bool, fn func()) {
	w.putBool(present)
	if present {
		fn()
	}
}

// reader consumes fields in the same order writer produced them. The first
// error encountered is sticky; callers check r.err once at the end instead
// of threading errors through every call site.
type reader struct {
	buf []byte
	off int
	err error
}

func newReader(b []byte) *reader { return &reader{buf: b} }

func (r *reader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf(format, args...)
	}
}

func (r *reader) getBool() bool {
	if r.err != nil {
		return false
	}
	if r.off+1 > len(r.buf) {
		r.fail("unexpected end of frame reading bool")
		return false
	}
	v := r.buf[r.off] != 0
	r.off++
	return v
}

func (r *reader) getU8() uint8 {
	if r.err != nil {
		return 0
	}
	if r.off+1 > len(r.buf) {
		r.fail("unexpected end of frame reading u8")
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *reader) getI32() int32 {
	if r.err != nil {
		return 0
	}
	if r.off+4 > len(r.buf) {
		r.fail("unexpected end of frame reading i32")
		return 0
	}
	v := int32(binary.BigEndian.Uint32(r.buf[r.off : r.off+4]))
	r.off += 4
	return v
}

func (r *reader) getBytes() []byte {
	if r.err != nil {
		return nil
	}
	if r.off+4 > len(r.buf) {
		r.fail("unexpected end of frame reading length")
		return nil
	}
	n := binary.BigEndian.Uint32(r.buf[r.off : r.off+4])
	r.off += 4
	if n > uint32(len(r.buf)-r.off) {
		r.fail("field length %d exceeds remaining frame", n)
		return nil
	}
	v := r.buf[r.off : r.off+int(n)]
	r.off += int(n)
	if n == 0 {
		return nil
	}
	out := make([]byte, n)
	copy(out, v)
	return out
}

func (r *reader) getString() string {
	b := r.getBytes()
	if b == nil {
		return ""
	}
	return string(b)
}

func (r *reader) getOptional(fn func()) {
	if r.getBool() {
		fn()
	}
}
