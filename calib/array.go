/*******************************************************************************
 * Copyright (c) 2026 Genome Research Ltd.
 *
 * Permission is hereby granted, free of charge, to any person obtaining
 * a copy of this software and associated documentation files (the
 * "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish,
 * distribute, sublicense, and/or sell copies of the Software, and to
 * permit persons to whom the Software is furnished to do so, subject to
 * the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
 * EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
 * MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY
 * CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT,
 * TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 ******************************************************************************/

package calib

import (
	"fmt"
	"math"
	"slices"

	"golang.org/x/exp/constraints"
)

// Array is an n-dimensional calibration payload. Values are held as float64
// but are always representable in DType, so they survive a round trip through
// storage at DType's width unchanged.
type Array struct {
	DType  DType
	Shape  []int
	Values []float64
}

// NewArray validates that values fit shape and dtype, casting float32 values
// to single precision.
func NewArray(dt DType, shape []int, values []float64) (*Array, error) {
	if dt.Size() == 0 {
		return nil, fmt.Errorf("%w: dtype %s cannot hold numbers", ErrInvalidArray, dt)
	}

	n, err := shapeLen(shape)
	if err != nil {
		return nil, err
	}

	if n != len(values) {
		return nil, fmt.Errorf("%w: shape %v needs %d values, got %d", ErrInvalidArray, shape, n, len(values))
	}

	a := &Array{DType: dt, Shape: slices.Clone(shape), Values: make([]float64, len(values))}

	for i, v := range values {
		c, err := castTo(dt, v)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %w", ErrInvalidArray, i, err)
		}

		a.Values[i] = c
	}

	return a, nil
}

// ArrayOf is NewArray for any numeric slice.
func ArrayOf[T constraints.Integer | constraints.Float](dt DType, shape []int, values []T) (*Array, error) {
	f := make([]float64, len(values))
	for i, v := range values {
		f[i] = float64(v)
	}

	return NewArray(dt, shape, f)
}

// Fill returns an array of the given shape with every element set to v.
func Fill(dt DType, shape []int, v float64) (*Array, error) {
	n, err := shapeLen(shape)
	if err != nil {
		return nil, err
	}

	values := make([]float64, n)
	for i := range values {
		values[i] = v
	}

	return NewArray(dt, shape, values)
}

// MaxArrayLen is the most elements an Array may have.
const MaxArrayLen = math.MaxInt32

func shapeLen(shape []int) (int, error) {
	n := 1

	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("%w: negative dimension in shape %v", ErrInvalidArray, shape)
		}

		if d != 0 && n > MaxArrayLen/d {
			return 0, fmt.Errorf("%w: shape %v has more than %d elements", ErrInvalidArray, shape, MaxArrayLen)
		}

		n *= d
	}

	return n, nil
}

func castTo(dt DType, v float64) (float64, error) {
	switch dt { //nolint:exhaustive
	case DTypeFloat32:
		return float64(float32(v)), nil
	case DTypeFloat64:
		return v, nil
	case DTypeUint8:
		return castUint(v, math.MaxUint8)
	case DTypeUint16:
		return castUint(v, math.MaxUint16)
	}

	return 0, ErrUnsupportedValue
}

func castUint(v float64, limit float64) (float64, error) {
	if v != math.Trunc(v) || v < 0 || v > limit {
		return 0, fmt.Errorf("%v does not fit in [0, %v]", v, limit) //nolint:err113
	}

	return v, nil
}

// Len is the number of elements.
func (a *Array) Len() int { return len(a.Values) }

// Bytes is the stored size of the values at DType's width.
func (a *Array) Bytes() int { return len(a.Values) * a.DType.Size() }

// Equal reports element-wise equality of dtype, shape and values.
func (a *Array) Equal(b *Array) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.DType == b.DType && slices.Equal(a.Shape, b.Shape) && slices.Equal(a.Values, b.Values)
}

// Describe returns a short summary such as "float32[3x3]".
func (a *Array) Describe() string {
	dims := ""

	for i, d := range a.Shape {
		if i > 0 {
			dims += "x"
		}

		dims += fmt.Sprint(d)
	}

	return fmt.Sprintf("%s[%s]", a.DType, dims)
}
