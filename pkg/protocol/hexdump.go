package protocol

import (
	"fmt"
	"strings"
)

// HexDump renders a frame as 16-byte rows of hex with a printable-ASCII
// gutter, the classic od layout. Used by the transport at debug level.
func HexDump(buf []byte) string {
	const rowSize = 16
	var sb strings.Builder
	fmt.Fprintf(&sb, "frame (%d bytes):\n", len(buf))
	for i := 0; i < len(buf); i += rowSize {
		for j := 0; j < rowSize; j++ {
			if i+j < len(buf) {
				fmt.Fprintf(&sb, "%02X ", buf[i+j])
			} else {
				sb.WriteString("   ")
			}
		}
		sb.WriteString("  ")
		for j := 0; j < rowSize && i+j < len(buf); j++ {
			c := buf[i+j]
			if c >= 0x20 && c < 0x7f {
				sb.WriteByte(c)
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
