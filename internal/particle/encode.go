package particle

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/ayusman/gesturetree/internal/geom"
)

// FrameMagic starts every encoded frame.
const FrameMagic = "GTF1"

// floatsPerObject is px, py, pz, qx, qy, qz, qw, scale.
const floatsPerObject = 8

// Encode appends the last updated frame to buf[:0] and returns it. Reusing
// the returned slice across frames avoids allocation once it has grown.
//
// Layout, little-endian: magic, u8 mode, u8 gesture, u16 population count,
// f32 elapsed; then per population u8 name length, name, u32 object count,
// f32 yaw and eight f32 per object.
func (e *Engine) Encode(buf []byte) []byte {
	buf = append(buf[:0], FrameMagic...)
	buf = append(buf, uint8(e.mode), e.gesture)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(e.pops)))
	buf = appendFloat(buf, e.elapsed)

	for _, p := range e.pops {
		name := p.Name()
		buf = append(buf, uint8(len(name)))
		buf = append(buf, name...)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(p.Len()))
		buf = appendFloat(buf, p.yaw)

		for i := range p.pos {
			pos := p.output(i, e.elapsed)
			r := p.rot[i]
			buf = appendFloat(buf, pos.X)
			buf = appendFloat(buf, pos.Y)
			buf = appendFloat(buf, pos.Z)
			buf = appendFloat(buf, r.X)
			buf = appendFloat(buf, r.Y)
			buf = appendFloat(buf, r.Z)
			buf = appendFloat(buf, r.W)
			buf = appendFloat(buf, p.scale[i])
		}
	}
	return buf
}

func appendFloat(buf []byte, v float32) []byte {
	return binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
}

// ErrShortFrame is returned by DecodeFrame for truncated or foreign input.
var ErrShortFrame = errors.New("short or malformed frame")

// DecodedPopulation is one population read back from a frame.
type DecodedPopulation struct {
	Name       string
	Yaw        float32
	Transforms []Transform
}

// DecodedFrame is a frame read back by DecodeFrame.
type DecodedFrame struct {
	Mode        uint8
	Gesture     uint8
	Elapsed     float32
	Populations []DecodedPopulation
}

// DecodeFrame parses a frame produced by Encode. The renderer does this in
// the browser; the Go version backs tests and debugging tools.
func DecodeFrame(b []byte) (*DecodedFrame, error) {
	r := reader{b: b}
	if string(r.next(len(FrameMagic))) != FrameMagic {
		return nil, ErrShortFrame
	}

	f := &DecodedFrame{}
	f.Mode = r.u8()
	f.Gesture = r.u8()
	n := int(r.u16())
	f.Elapsed = r.f32()

	for range n {
		var p DecodedPopulation
		p.Name = string(r.next(int(r.u8())))
		count := int(r.u32())
		p.Yaw = r.f32()
		if r.err || count*floatsPerObject*4 > len(r.b) {
			return nil, ErrShortFrame
		}
		p.Transforms = make([]Transform, count)
		for i := range p.Transforms {
			p.Transforms[i] = Transform{
				Position: geom.V3(r.f32(), r.f32(), r.f32()),
				Rotation: geom.Quat{X: r.f32(), Y: r.f32(), Z: r.f32(), W: r.f32()},
				Scale:    r.f32(),
			}
		}
		f.Populations = append(f.Populations, p)
	}
	if r.err {
		return nil, ErrShortFrame
	}
	return f, nil
}

type reader struct {
	b   []byte
	err bool
}

func (r *reader) next(n int) []byte {
	if n > len(r.b) {
		r.err = true
		r.b = nil
		return make([]byte, n)
	}
	out := r.b[:n]
	r.b = r.b[n:]
	return out
}

func (r *reader) u8() uint8   { return r.next(1)[0] }
func (r *reader) u16() uint16 { return binary.LittleEndian.Uint16(r.next(2)) }
func (r *reader) u32() uint32 { return binary.LittleEndian.Uint32(r.next(4)) }
func (r *reader) f32() float32 {
	return math.Float32frombits(r.u32())
}
