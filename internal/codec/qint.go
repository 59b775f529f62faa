package codec

// QInt packs four unsigned 32-bit integers into a leading descriptor byte
// plus 1..4 bytes per integer (the minimal width that represents it).
// The descriptor byte holds four 2-bit "width-minus-one" fields, least
// significant pair first: bits 0-1 for the first integer, 2-3 for the
// second, 4-5 for the third, 6-7 for the fourth.

// widthOf returns the minimal byte width (1..4) needed to represent v.
func widthOf(v uint32) int {
	switch {
	case v <= 0xff:
		return 1
	case v <= 0xffff:
		return 2
	case v <= 0xffffff:
		return 3
	default:
		return 4
	}
}

// EncodeQInt4 appends the QInt encoding of four integers to buf.
func EncodeQInt4(buf []byte, a, b, c, d uint32) []byte {
	wa, wb, wc, wd := widthOf(a), widthOf(b), widthOf(c), widthOf(d)
	header := byte(wa-1) | byte(wb-1)<<2 | byte(wc-1)<<4 | byte(wd-1)<<6
	buf = append(buf, header)
	buf = appendLE(buf, a, wa)
	buf = appendLE(buf, b, wb)
	buf = appendLE(buf, c, wc)
	buf = appendLE(buf, d, wd)
	return buf
}

func appendLE(buf []byte, v uint32, width int) []byte {
	for i := 0; i < width; i++ {
		buf = append(buf, byte(v>>(8*uint(i))))
	}
	return buf
}

// qintWidths is a table-lookup keyed by the descriptor byte, giving the
// four declared widths (1..4) in field order. Computed once at init time
// so decoding is a single slice index, matching spec.md's "decoding is a
// table lookup" description.
var qintWidths [256][4]int

func init() {
	for h := 0; h < 256; h++ {
		qintWidths[h] = [4]int{
			int(h&0x03) + 1,
			int((h>>2)&0x03) + 1,
			int((h>>4)&0x03) + 1,
			int((h>>6)&0x03) + 1,
		}
	}
}

// DecodeQInt4 decodes four integers from the head of buf, returning them
// and the number of bytes consumed (0 if buf is too short).
func DecodeQInt4(buf []byte) (a, b, c, d uint32, n int) {
	if len(buf) < 1 {
		return 0, 0, 0, 0, 0
	}
	widths := qintWidths[buf[0]]
	off := 1
	vals := [4]uint32{}
	for i, w := range widths {
		if off+w > len(buf) {
			return 0, 0, 0, 0, 0
		}
		var v uint32
		for j := 0; j < w; j++ {
			v |= uint32(buf[off+j]) << (8 * uint(j))
		}
		vals[i] = v
		off += w
	}
	return vals[0], vals[1], vals[2], vals[3], off
}

// SizeQInt4 reports the number of bytes EncodeQInt4 would write.
func SizeQInt4(a, b, c, d uint32) int {
	return 1 + widthOf(a) + widthOf(b) + widthOf(c) + widthOf(d)
}
