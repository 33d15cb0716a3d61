package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Binary position frames are sent on the frames socket, one per render
// broadcast:
//
//	uint32 count  (little-endian)
//	uint32 seq
//	count*3 float32 x,y,z
const FrameHeaderSize = 8

// ErrShortFrame is returned when a frame is smaller than its header claims.
var ErrShortFrame = errors.New("protocol: short position frame")

// AppendPositionFrame encodes positions (flat x,y,z triples) after dst and
// returns the extended slice. A trailing partial triple is dropped.
func AppendPositionFrame(dst []byte, seq uint32, positions []float32) []byte {
	count := len(positions) / 3
	dst = binary.LittleEndian.AppendUint32(dst, uint32(count))
	dst = binary.LittleEndian.AppendUint32(dst, seq)
	for _, v := range positions[:count*3] {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}

// DecodePositionFrame parses a frame, appending the positions to dst[:0].
func DecodePositionFrame(frame []byte, dst []float32) (seq uint32, positions []float32, err error) {
	if len(frame) < FrameHeaderSize {
		return 0, nil, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(frame))
	}
	count := binary.LittleEndian.Uint32(frame[0:4])
	seq = binary.LittleEndian.Uint32(frame[4:8])

	body := frame[FrameHeaderSize:]
	if uint64(len(body)) < uint64(count)*12 {
		return 0, nil, fmt.Errorf("%w: %d particles need %d bytes, have %d", ErrShortFrame, count, uint64(count)*12, len(body))
	}

	positions = dst[:0]
	for i := 0; i < int(count)*3; i++ {
		positions = append(positions, math.Float32frombits(binary.LittleEndian.Uint32(body[i*4:])))
	}
	return seq, positions, nil
}
