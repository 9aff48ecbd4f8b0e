package google

// Gemini's streaming endpoint does not emit line-delimited events. It writes
// one top-level JSON array incrementally, so the opening bracket, separating
// commas, the closing bracket, and partial object bodies can each land on
// any byte-chunk boundary.

// arrayDecoder extracts complete top-level JSON objects from that stream.
// Objects are delimited by brace depth: a '{' increments, a '}' decrements,
// and the object is complete when depth returns to zero. Incomplete input
// stays buffered until more bytes arrive.
type arrayDecoder struct {
	buf []byte
}

// feed appends newly received bytes to the buffer.
func (d *arrayDecoder) feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// next returns the next complete top-level object, or ok=false when the
// buffer holds none yet. Leftover bytes remain buffered for the next feed.
func (d *arrayDecoder) next() (obj []byte, ok bool) {
	d.trimLeading()

	if len(d.buf) == 0 || d.buf[0] == ']' {
		return nil, false
	}

	depth := 0
	end := -1
	for i, c := range d.buf {
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i + 1
			}
		}
		if end > 0 {
			break
		}
	}

	if end < 0 {
		return nil, false
	}

	// Copy out: the tail slice aliases the same backing array that the next
	// feed will append into.
	obj = make([]byte, end)
	copy(obj, d.buf[:end])
	d.buf = d.buf[end:]

	return obj, true
}

// trimLeading discards array framing (whitespace, '[', ',') ahead of the
// next object.
func (d *arrayDecoder) trimLeading() {
	i := 0
	for i < len(d.buf) {
		switch d.buf[i] {
		case ' ', '\t', '\r', '\n', '[', ',':
			i++
		default:
			d.buf = d.buf[i:]
			return
		}
	}
	d.buf = d.buf[:0]
}
