package bolt

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/pgzip"
	"github.com/ugorji/go/codec"
	"github.com/wtsi-hgi/calibstore/calib"
	"vimagination.zapto.org/byteio"
)

// Every leaf value starts with one of these kind bytes so the container is
// self-describing.
const (
	kindString    byte = 's'
	kindInt       byte = 'i'
	kindFloat     byte = 'f'
	kindArray     byte = 'a'
	kindArrayGzip byte = 'z'
)

const maxArrayDims = 32

func (c *Container) encodeLeaf(value any) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return c.encodeScalar(kindString, v)
	case int64:
		return c.encodeScalar(kindInt, v)
	case int:
		return c.encodeScalar(kindInt, int64(v))
	case float64:
		return c.encodeScalar(kindFloat, v)
	case *calib.Array:
		return c.encodeArray(v)
	}

	return nil, fmt.Errorf("%w: %T", calib.ErrUnsupportedValue, value)
}

func (c *Container) encodeScalar(kind byte, v any) ([]byte, error) {
	var encoded []byte

	if err := codec.NewEncoderBytes(&encoded, c.ch).Encode(v); err != nil {
		return nil, err
	}

	return append([]byte{kind}, encoded...), nil
}

func (c *Container) encodeArray(a *calib.Array) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil array", calib.ErrUnsupportedValue)
	}

	var body bytes.Buffer

	if err := writeArray(&body, a); err != nil {
		return nil, err
	}

	if c.opts.CompressOver < 0 || body.Len() <= c.opts.CompressOver {
		return append([]byte{kindArray}, body.Bytes()...), nil
	}

	out := bytes.NewBuffer([]byte{kindArrayGzip})
	zw := pgzip.NewWriter(out)

	if _, err := body.WriteTo(zw); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}

	return out.Bytes(), nil
}

func writeArray(w io.Writer, a *calib.Array) error {
	if a.DType.Size() == 0 {
		return fmt.Errorf("%w: dtype %s", calib.ErrInvalidArray, a.DType)
	}

	lw := &byteio.StickyLittleEndianWriter{Writer: w}

	lw.WriteUint8(uint8(a.DType))
	lw.WriteUintX(uint64(len(a.Shape)))

	for _, d := range a.Shape {
		lw.WriteUintX(uint64(d))
	}

	lw.WriteUintX(uint64(len(a.Values)))

	for _, v := range a.Values {
		writeValue(lw, a.DType, v)
	}

	return lw.Err
}

func writeValue(lw *byteio.StickyLittleEndianWriter, dt calib.DType, v float64) {
	switch dt { //nolint:exhaustive
	case calib.DTypeFloat32:
		lw.WriteUint32(math.Float32bits(float32(v)))
	case calib.DTypeFloat64:
		lw.WriteUint64(math.Float64bits(v))
	case calib.DTypeUint8:
		lw.WriteUint8(uint8(v))
	case calib.DTypeUint16:
		lw.WriteUint16(uint16(v))
	}
}

func (c *Container) decodeLeaf(b []byte) (any, error) {
	if len(b) == 0 {
		return nil, ErrCorruptLeaf
	}

	switch b[0] {
	case kindString:
		var s string

		return s, c.decodeScalar(b[1:], &s)
	case kindInt:
		var i int64

		return i, c.decodeScalar(b[1:], &i)
	case kindFloat:
		var f float64

		return f, c.decodeScalar(b[1:], &f)
	case kindArray:
		return readArray(bytes.NewReader(b[1:]))
	case kindArrayGzip:
		zr, err := pgzip.NewReader(bytes.NewReader(b[1:]))
		if err != nil {
			return nil, err
		}

		defer zr.Close()

		return readArray(zr)
	}

	return nil, fmt.Errorf("%w: kind %q", ErrCorruptLeaf, b[0])
}

func (c *Container) decodeScalar(b []byte, v any) error {
	return codec.NewDecoderBytes(b, c.ch).Decode(v)
}

func readArray(r io.Reader) (*calib.Array, error) {
	lr := &byteio.StickyLittleEndianReader{Reader: r}

	dt := calib.DType(lr.ReadUint8())

	ndim := lr.ReadUintX()
	if lr.Err != nil || ndim > maxArrayDims || dt.Size() == 0 {
		return nil, fmt.Errorf("%w: bad array header", ErrCorruptLeaf)
	}

	shape := make([]int, ndim)
	for i := range shape {
		shape[i] = int(lr.ReadUintX())
	}

	n := lr.ReadUintX()
	if lr.Err != nil {
		return nil, lr.Err
	}

	values := make([]float64, 0, min(n, 1<<20))
	for range n {
		values = append(values, readValue(lr, dt))

		if lr.Err != nil {
			return nil, lr.Err
		}
	}

	return calib.NewArray(dt, shape, values)
}

func readValue(lr *byteio.StickyLittleEndianReader, dt calib.DType) float64 {
	switch dt { //nolint:exhaustive
	case calib.DTypeFloat32:
		return float64(math.Float32frombits(lr.ReadUint32()))
	case calib.DTypeFloat64:
		return math.Float64frombits(lr.ReadUint64())
	case calib.DTypeUint8:
		return float64(lr.ReadUint8())
	case calib.DTypeUint16:
		return float64(lr.ReadUint16())
	}

	return 0
}
