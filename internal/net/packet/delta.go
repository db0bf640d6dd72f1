package packet

import "fmt"

// Delta wire types. A field marker byte is (fieldID << 3) | wireType, so
// field ids 0-31 fit in one byte. Readers skip fields they don't know,
// which lets the server grow the delta format without breaking old clients.
const (
	FieldVarint  byte = 0
	FieldFixed32 byte = 1
	FieldFixed64 byte = 2
	FieldString  byte = 3
	FieldBytes   byte = 4
	FieldEnd     byte = 7
)

// Entity kinds inside WORLD_FULL / WORLD_DELTA payloads. Each entity is a
// kind marker (field id = kind, varint value = entity id) followed by its
// fields and a FieldEnd marker.
const (
	EntityComputer byte = 1
	EntityMission  byte = 2
	EntityAgent    byte = 3
)

// Computer delta field ids.
const (
	CompFieldSecurity  byte = 2
	CompFieldRunning   byte = 3
	CompFieldBypass    byte = 4 // bit0 proxy, bit1 firewall, bit2 monitor
	CompFieldName      byte = 5
	CompFieldIP        byte = 6
	CompFieldConnected byte = 7
)

// Mission delta field ids.
const (
	MissionFieldClaimedBy   byte = 2
	MissionFieldCompleted   byte = 3
	MissionFieldPayment     byte = 4
	MissionFieldDifficulty  byte = 5
	MissionFieldDescription byte = 6
	MissionFieldTargetIP    byte = 7
)

// Agent delta field ids.
const (
	AgentFieldRating  byte = 2
	AgentFieldCredits byte = 3
	AgentFieldHandle  byte = 4
	AgentFieldMission byte = 5
)

// AppendUvarint appends v in LEB128 form (at most 5 bytes for a uint32).
func AppendUvarint(buf []byte, v uint32) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// Uvarint decodes a LEB128 uint32 and returns the value and byte count.
// Returns n == 0 when the buffer ends mid-value or the value overflows.
func Uvarint(data []byte) (uint32, int) {
	var v uint32
	var shift uint
	for i, b := range data {
		if i == 5 {
			return 0, 0 // overlong
		}
		v |= uint32(b&0x7F) << shift
		if b&0x80 == 0 {
			return v, i + 1
		}
		shift += 7
	}
	return 0, 0
}

// DeltaWriter builds a WORLD_FULL / WORLD_DELTA payload.
type DeltaWriter struct {
	buf []byte
}

func NewDeltaWriter() *DeltaWriter {
	return &DeltaWriter{buf: make([]byte, 0, 256)}
}

// Begin opens an entity object of the given kind and id.
func (w *DeltaWriter) Begin(kind byte, id uint32) {
	w.buf = append(w.buf, kind<<3|FieldVarint)
	w.buf = AppendUvarint(w.buf, id)
}

// End closes the current entity object.
func (w *DeltaWriter) End() {
	w.buf = append(w.buf, FieldEnd) // field id 0, type end
}

func (w *DeltaWriter) Varint(fieldID byte, v uint32) {
	w.buf = append(w.buf, fieldID<<3|FieldVarint)
	w.buf = AppendUvarint(w.buf, v)
}

func (w *DeltaWriter) String(fieldID byte, s string) {
	w.buf = append(w.buf, fieldID<<3|FieldString)
	w.buf = AppendUvarint(w.buf, uint32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *DeltaWriter) Bytes() []byte {
	return w.buf
}

func (w *DeltaWriter) Len() int {
	return len(w.buf)
}

// DeltaField is one decoded field of an entity object.
type DeltaField struct {
	ID   byte
	Type byte
	Num  uint32
	Str  string
}

// DeltaEntity is one decoded entity object.
type DeltaEntity struct {
	Kind   byte
	ID     uint32
	Fields []DeltaField
}

// DecodeDelta parses a delta payload into entity objects, skipping fields
// with unknown wire types it can still frame (string/bytes carry their
// length). An unframeable byte aborts with an error.
func DecodeDelta(data []byte) ([]DeltaEntity, error) {
	var out []DeltaEntity
	off := 0
	for off < len(data) {
		marker := data[off]
		off++
		kind := marker >> 3
		if marker&0x07 != FieldVarint || kind == 0 {
			return nil, fmt.Errorf("delta: bad entity marker 0x%02x at %d", marker, off-1)
		}
		id, n := Uvarint(data[off:])
		if n == 0 {
			return nil, fmt.Errorf("delta: truncated entity id at %d", off)
		}
		off += n

		ent := DeltaEntity{Kind: kind, ID: id}
		for {
			if off >= len(data) {
				return nil, fmt.Errorf("delta: unterminated entity %d", id)
			}
			m := data[off]
			off++
			ftype := m & 0x07
			fid := m >> 3
			if ftype == FieldEnd {
				break
			}
			f := DeltaField{ID: fid, Type: ftype}
			switch ftype {
			case FieldVarint:
				v, n := Uvarint(data[off:])
				if n == 0 {
					return nil, fmt.Errorf("delta: truncated varint field %d", fid)
				}
				f.Num = v
				off += n
			case FieldFixed32:
				if off+4 > len(data) {
					return nil, fmt.Errorf("delta: truncated fixed32 field %d", fid)
				}
				f.Num = uint32(data[off]) | uint32(data[off+1])<<8 |
					uint32(data[off+2])<<16 | uint32(data[off+3])<<24
				off += 4
			case FieldString, FieldBytes:
				l, n := Uvarint(data[off:])
				if n == 0 || off+n+int(l) > len(data) {
					return nil, fmt.Errorf("delta: truncated string field %d", fid)
				}
				off += n
				f.Str = string(data[off : off+int(l)])
				off += int(l)
			case FieldFixed64:
				if off+8 > len(data) {
					return nil, fmt.Errorf("delta: truncated fixed64 field %d", fid)
				}
				off += 8 // value unused server-side, framed for skipping
			default:
				return nil, fmt.Errorf("delta: unknown wire type %d", ftype)
			}
			ent.Fields = append(ent.Fields, f)
		}
		out = append(out, ent)
	}
	return out, nil
}
