package net

import (
	"encoding/binary"
	"fmt"

	"github.com/cybrelink/server/internal/net/packet"
	"github.com/klauspost/compress/zstd"
)

// Wire format: [1B type][1B flags][2B LE payload length][payload].
// The header is never compressed; FLAG_COMPRESSED marks a zstd payload.

// compressThreshold is the payload size above which outbound world packets
// are worth compressing. Small payloads grow under zstd framing overhead.
const compressThreshold = 256

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	zstdDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
)

// EncodeFrame builds a complete wire frame.
func EncodeFrame(ptype, flags byte, payload []byte) ([]byte, error) {
	if len(payload) > packet.MaxPayload {
		return nil, fmt.Errorf("payload too large: %d bytes", len(payload))
	}
	buf := make([]byte, packet.HeaderSize+len(payload))
	buf[0] = ptype
	buf[1] = flags
	binary.LittleEndian.PutUint16(buf[2:4], uint16(len(payload)))
	copy(buf[packet.HeaderSize:], payload)
	return buf, nil
}

// EncodeCompressed builds a wire frame, zstd-compressing the payload when it
// is large enough for compression to pay off.
func EncodeCompressed(ptype byte, payload []byte) ([]byte, error) {
	if len(payload) < compressThreshold {
		return EncodeFrame(ptype, 0, payload)
	}
	compressed := zstdEncoder.EncodeAll(payload, nil)
	if len(compressed) >= len(payload) {
		return EncodeFrame(ptype, 0, payload)
	}
	return EncodeFrame(ptype, packet.FLAG_COMPRESSED, compressed)
}

// Decoder accumulates raw TCP bytes and yields whole frames. A frame is
// produced only when the full header plus payload is buffered, so handlers
// never see a partial packet regardless of how TCP fragments the stream.
type Decoder struct {
	buf []byte
}

// Feed appends raw bytes from the connection.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Next returns the next complete frame, or nil when more bytes are needed.
// Compressed payloads are decompressed before return; a corrupt compressed
// payload is an error and the connection should be dropped.
func (d *Decoder) Next() (*packet.Frame, error) {
	if len(d.buf) < packet.HeaderSize {
		return nil, nil
	}
	length := int(binary.LittleEndian.Uint16(d.buf[2:4]))
	total := packet.HeaderSize + length
	if len(d.buf) < total {
		return nil, nil
	}

	f := &packet.Frame{
		Type:  d.buf[0],
		Flags: d.buf[1],
	}
	payload := make([]byte, length)
	copy(payload, d.buf[packet.HeaderSize:total])
	d.buf = d.buf[total:]

	if f.Flags&packet.FLAG_COMPRESSED != 0 {
		decompressed, err := zstdDecoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress payload: %w", err)
		}
		payload = decompressed
		f.Flags &^= packet.FLAG_COMPRESSED
	}
	f.Payload = payload
	return f, nil
}

// Buffered returns the number of bytes waiting for a complete frame.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}
