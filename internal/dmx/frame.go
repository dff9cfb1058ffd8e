// Package dmx encodes channel buffers into the UDP frames understood by the
// power/data supply and delivers them.
//
// The frame is the KiNET v1 DMXOUT layout: a 21 byte little-endian header
// followed by a fixed 255 byte channel payload.
package dmx

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/lunixbochs/struc"
)

const (
	Magic       uint32 = 0x4ADC0104
	Version     uint16 = 0x0001
	TypeDMXOut  uint16 = 0x0101
	FlagsAll    uint16 = 0xFFFF
	PayloadSize        = 255
	HeaderSize         = 21
	FrameSize          = HeaderSize + PayloadSize
)

var (
	ErrPayloadTooLarge = errors.New("channel buffer exceeds frame payload")
	ErrBadFrame        = errors.New("malformed frame")
)

var packOptions = &struc.Options{Order: binary.LittleEndian}

// Frame mirrors the wire layout field for field.
type Frame struct {
	Magic    uint32 `struc:"uint32"`
	Version  uint16 `struc:"uint16"`
	Type     uint16 `struc:"uint16"`
	Sequence uint32 `struc:"uint32"`
	Port     uint8  `struc:"uint8"`
	Pad      []byte `struc:"[1]pad"`
	Flags    uint16 `struc:"uint16"`
	Timer    uint32 `struc:"uint32"`
	Universe uint8  `struc:"uint8"`
	Payload  []byte `struc:"[255]uint8"`
}

// NewFrame builds a frame for channels, zero-padding the payload to PayloadSize.
func NewFrame(channels []uint8) (*Frame, error) {
	if len(channels) > PayloadSize {
		return nil, fmt.Errorf("%w: %d channels, max %d", ErrPayloadTooLarge, len(channels), PayloadSize)
	}
	payload := make([]byte, PayloadSize)
	copy(payload, channels)

	return &Frame{
		Magic:   Magic,
		Version: Version,
		Type:    TypeDMXOut,
		Flags:   FlagsAll,
		Payload: payload,
	}, nil
}

// Encode serializes channels into a FrameSize byte datagram.
func Encode(channels []uint8) ([]byte, error) {
	f, err := NewFrame(channels)
	if err != nil {
		return nil, err
	}
	return f.MarshalBinary()
}

func (f *Frame) MarshalBinary() ([]byte, error) {
	if len(f.Payload) != PayloadSize {
		return nil, fmt.Errorf("%w: payload is %d bytes", ErrBadFrame, len(f.Payload))
	}
	var buf bytes.Buffer
	buf.Grow(FrameSize)
	if err := struc.PackWithOptions(&buf, f, packOptions); err != nil {
		return nil, fmt.Errorf("pack frame: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a datagram produced by Encode.
func Decode(data []byte) (*Frame, error) {
	if len(data) != FrameSize {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrBadFrame, len(data), FrameSize)
	}
	f := &Frame{}
	if err := struc.UnpackWithOptions(bytes.NewReader(data), f, packOptions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	if f.Magic != Magic {
		return nil, fmt.Errorf("%w: magic %#x", ErrBadFrame, f.Magic)
	}
	return f, nil
}
