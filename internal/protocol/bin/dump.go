package bin

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes a hexdump of data to w, 16 bytes per line with an ASCII
// gutter, in the classic `hexdump -C` layout. Supplemented from
// original_source's bin2cxx / bin dump helpers (§"Supplemented features":
// a human-readable view of the wire format is invaluable when debugging a
// codec that has no textual fallback), and used by cmd/sertool's
// `decode --hexdump` flag.
func Dump(w io.Writer, data []byte) error {
	for off := 0; off < len(data); off += 16 {
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		line := data[off:end]

		var hex strings.Builder
		for i := 0; i < 16; i++ {
			if i < len(line) {
				fmt.Fprintf(&hex, "%02x ", line[i])
			} else {
				hex.WriteString("   ")
			}
			if i == 7 {
				hex.WriteByte(' ')
			}
		}

		var ascii strings.Builder
		for _, b := range line {
			if b >= 0x20 && b < 0x7f {
				ascii.WriteByte(b)
			} else {
				ascii.WriteByte('.')
			}
		}

		if _, err := fmt.Fprintf(w, "%08x  %s |%s|\n", off, hex.String(), ascii.String()); err != nil {
			return err
		}
	}
	return nil
}
