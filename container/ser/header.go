/*
NAME
  header.go

DESCRIPTION
  header.go parses the fixed 178-byte SER container header: magic, color
  format, endianness, geometry, bit depth, frame count and the UTF-8
  metadata fields.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package ser provides a streaming reader for the SER planetary-capture
// container format.
package ser

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ausocean/lucky/frame"
)

// HeaderSize is the fixed size in bytes of the SER header block.
const HeaderSize = 178

// magic is the 14-byte container identifier.
var magic = [14]byte{'L', 'U', 'C', 'A', 'M', '-', 'R', 'E', 'C', 'O', 'R', 'D', 'E', 'R'}

// ColorID identifies the pixel layout of a SER capture.
type ColorID int32

// Valid ColorID values per the SER format.
const (
	ColorMono ColorID = 0
	ColorRGGB ColorID = 8
	ColorGRBG ColorID = 9
	ColorGBRG ColorID = 10
	ColorBGGR ColorID = 11
	ColorRGB  ColorID = 100
	ColorBGR  ColorID = 101
)

// Planes reports the number of interleaved color planes for c.
func (c ColorID) Planes() int {
	switch c {
	case ColorRGB, ColorBGR:
		return 3
	default:
		return 1
	}
}

// Header is the parsed, validated SER header.
type Header struct {
	Color          ColorID
	LittleEndian   bool
	Width          int
	Height         int
	BitsPerSample  int
	FrameCount     int
	Observer       string
	Instrument     string
	Telescope      string
	CaptureStart   int64
	CaptureStartUTC int64
}

// BytesPerSample returns the on-disk sample width: 1 for 8-bit, 2 for 16-bit.
func (h Header) BytesPerSample() int {
	if h.BitsPerSample > 8 {
		return 2
	}
	return 1
}

// FrameBytes returns the byte size of a single frame's pixel payload.
func (h Header) FrameBytes() int64 {
	return int64(h.Width) * int64(h.Height) * int64(h.BytesPerSample()) * int64(h.Color.Planes())
}

// parseHeader decodes and validates a 178-byte SER header block.
func parseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, &frame.Error{Kind: frame.InvalidHeader, Stage: "ser", Msg: "header too short"}
	}
	if !bytes.Equal(buf[0:14], magic[:]) {
		return Header{}, &frame.Error{Kind: frame.InvalidHeader, Stage: "ser", Msg: "bad magic"}
	}

	le := binary.LittleEndian.Uint32(buf[22:26]) != 0
	bo := binary.ByteOrder(binary.LittleEndian)
	if !le {
		bo = binary.BigEndian
	}

	h := Header{
		Color:         ColorID(int32(bo.Uint32(buf[18:22]))),
		LittleEndian:  le,
		Width:         int(int32(bo.Uint32(buf[26:30]))),
		Height:        int(int32(bo.Uint32(buf[30:34]))),
		BitsPerSample: int(int32(bo.Uint32(buf[34:38]))),
		FrameCount:    int(int32(bo.Uint32(buf[38:42]))),
		Observer:      trimField(buf[42:82]),
		Instrument:    trimField(buf[82:122]),
		Telescope:     trimField(buf[122:162]),
		CaptureStart:  int64(bo.Uint64(buf[162:170])),
		CaptureStartUTC: int64(bo.Uint64(buf[170:178])),
	}

	if err := h.validate(); err != nil {
		return Header{}, err
	}
	return h, nil
}

func (h Header) validate() error {
	switch h.Color {
	case ColorMono, ColorRGGB, ColorGRBG, ColorGBRG, ColorBGGR, ColorRGB, ColorBGR:
	default:
		return &frame.Error{Kind: frame.UnsupportedFormat, Stage: "ser", Msg: fmt.Sprintf("unsupported color id %d", h.Color)}
	}
	if h.BitsPerSample != 8 && h.BitsPerSample != 16 {
		return &frame.Error{Kind: frame.UnsupportedFormat, Stage: "ser", Msg: fmt.Sprintf("unsupported bit depth %d", h.BitsPerSample)}
	}
	if h.Width <= 0 || h.Height <= 0 {
		return &frame.Error{Kind: frame.InvalidHeader, Stage: "ser", Msg: "non-positive image dimensions"}
	}
	if h.FrameCount < 0 {
		return &frame.Error{Kind: frame.InvalidHeader, Stage: "ser", Msg: "negative frame count"}
	}
	return nil
}

// trimField trims trailing NUL/space padding from a fixed-width metadata
// field, matching the SER convention of space-padded UTF-8 strings.
func trimField(b []byte) string {
	end := len(b)
	for end > 0 && (b[end-1] == 0 || b[end-1] == ' ') {
		end--
	}
	return string(b[:end])
}
