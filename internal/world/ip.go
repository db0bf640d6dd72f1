package world

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// ParseIP converts an address string to its numeric key. Real dotted quads
// pack big-endian into the low 32 bits. The simulation also uses
// IPv4-shaped addresses with out-of-range octets ("234.773.0.444"), which
// cannot pack — those hash instead, which keeps the key stable and unique
// enough for indexing. Empty or garbage input returns 0.
func ParseIP(s string) int64 {
	if s == "" {
		return 0
	}
	parts := strings.Split(s, ".")
	if len(parts) == 4 {
		var v int64
		ok := true
		for _, p := range parts {
			n, err := strconv.Atoi(p)
			if err != nil || n < 0 || n > 255 {
				ok = false
				break
			}
			v = v<<8 | int64(n)
		}
		if ok {
			return v
		}
	}
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64() & 0x7FFFFFFFFFFFFFFF)
}

// FormatIP renders a packed dotted quad back to text. Hashed keys (from
// out-of-range octets) are not reversible and render as hex.
func FormatIP(v int64) string {
	if v < 0 || v > 0xFFFFFFFF {
		return "0x" + strconv.FormatUint(uint64(v), 16)
	}
	return strconv.FormatInt(v>>24&0xFF, 10) + "." +
		strconv.FormatInt(v>>16&0xFF, 10) + "." +
		strconv.FormatInt(v>>8&0xFF, 10) + "." +
		strconv.FormatInt(v&0xFF, 10)
}
