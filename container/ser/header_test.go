/*
NAME
  header_test.go

DESCRIPTION
  header_test.go tests SER header parsing and validation.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package ser

import (
	"encoding/binary"
	"testing"

	"github.com/ausocean/lucky/frame"
)

// buildHeader returns a valid 178-byte little-endian header with the given
// color id, bit depth, geometry and frame count, for use as a base in tests.
func buildHeader(color ColorID, bits, width, height, frames int) []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:14], magic[:])
	binary.LittleEndian.PutUint32(buf[18:22], uint32(int32(color)))
	binary.LittleEndian.PutUint32(buf[22:26], 1) // little-endian flag.
	binary.LittleEndian.PutUint32(buf[26:30], uint32(int32(width)))
	binary.LittleEndian.PutUint32(buf[30:34], uint32(int32(height)))
	binary.LittleEndian.PutUint32(buf[34:38], uint32(int32(bits)))
	binary.LittleEndian.PutUint32(buf[38:42], uint32(int32(frames)))
	copy(buf[42:82], []byte("observer"))
	copy(buf[82:122], []byte("instrument"))
	copy(buf[122:162], []byte("telescope"))
	return buf
}

func TestParseHeaderValid(t *testing.T) {
	buf := buildHeader(ColorMono, 16, 640, 480, 100)
	h, err := parseHeader(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Width != 640 || h.Height != 480 || h.FrameCount != 100 || h.BitsPerSample != 16 {
		t.Errorf("parsed header = %+v, want 640x480 16-bit 100 frames", h)
	}
	if h.Observer != "observer" || h.Instrument != "instrument" || h.Telescope != "telescope" {
		t.Errorf("parsed metadata fields = %+v", h)
	}
	if !h.LittleEndian {
		t.Errorf("expected LittleEndian=true")
	}
	if h.BytesPerSample() != 2 {
		t.Errorf("BytesPerSample() = %d, want 2 for 16-bit", h.BytesPerSample())
	}
}

func TestParseHeaderTooShort(t *testing.T) {
	_, err := parseHeader(make([]byte, 10))
	if !frame.Is(err, frame.InvalidHeader) {
		t.Errorf("short header error = %v, want InvalidHeader", err)
	}
}

func TestParseHeaderBadMagic(t *testing.T) {
	buf := buildHeader(ColorMono, 8, 64, 64, 1)
	buf[0] = 'X'
	_, err := parseHeader(buf)
	if !frame.Is(err, frame.InvalidHeader) {
		t.Errorf("bad magic error = %v, want InvalidHeader", err)
	}
}

func TestParseHeaderUnsupportedColor(t *testing.T) {
	buf := buildHeader(ColorID(42), 8, 64, 64, 1)
	_, err := parseHeader(buf)
	if !frame.Is(err, frame.UnsupportedFormat) {
		t.Errorf("unsupported color error = %v, want UnsupportedFormat", err)
	}
}

func TestParseHeaderUnsupportedBitDepth(t *testing.T) {
	buf := buildHeader(ColorMono, 12, 64, 64, 1)
	_, err := parseHeader(buf)
	if !frame.Is(err, frame.UnsupportedFormat) {
		t.Errorf("unsupported bit depth error = %v, want UnsupportedFormat", err)
	}
}

func TestParseHeaderNonPositiveDims(t *testing.T) {
	buf := buildHeader(ColorMono, 8, 0, 64, 1)
	_, err := parseHeader(buf)
	if !frame.Is(err, frame.InvalidHeader) {
		t.Errorf("zero width error = %v, want InvalidHeader", err)
	}
}

func TestColorIDPlanes(t *testing.T) {
	cases := []struct {
		color ColorID
		want  int
	}{
		{ColorMono, 1},
		{ColorRGGB, 1},
		{ColorRGB, 3},
		{ColorBGR, 3},
	}
	for _, c := range cases {
		if got := c.color.Planes(); got != c.want {
			t.Errorf("ColorID(%d).Planes() = %d, want %d", c.color, got, c.want)
		}
	}
}

func TestFrameBytes(t *testing.T) {
	h := Header{Width: 10, Height: 5, BitsPerSample: 16, Color: ColorMono}
	if got, want := h.FrameBytes(), int64(10*5*2*1); got != want {
		t.Errorf("FrameBytes() = %d, want %d", got, want)
	}
}
