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
	"maps"
	"slices"
)

// DType is the storage type of a calibration payload.
type DType uint8

const (
	DTypeUnknown DType = iota
	DTypeFloat32
	DTypeFloat64
	DTypeUint8
	DTypeUint16
	DTypeText
)

var dtypeNames = [...]string{ //nolint:gochecknoglobals
	DTypeUnknown: "unknown",
	DTypeFloat32: "float32",
	DTypeFloat64: "float64",
	DTypeUint8:   "uint8",
	DTypeUint16:  "uint16",
	DTypeText:    "text",
}

func (d DType) String() string {
	if int(d) >= len(dtypeNames) {
		return dtypeNames[DTypeUnknown]
	}

	return dtypeNames[d]
}

// Size returns the width in bytes of one element, or 0 for text and unknown
// dtypes.
func (d DType) Size() int {
	switch d { //nolint:exhaustive
	case DTypeFloat32:
		return 4
	case DTypeFloat64:
		return 8
	case DTypeUint8:
		return 1
	case DTypeUint16:
		return 2
	}

	return 0
}

// ParseDType is the inverse of DType.String.
func ParseDType(s string) (DType, error) {
	for i, name := range dtypeNames {
		if i != int(DTypeUnknown) && name == s {
			return DType(i), nil
		}
	}

	return DTypeUnknown, fmt.Errorf("%w: dtype %q", ErrUnsupportedValue, s)
}

// CType is the canonical name of a calibration type.
type CType string

const (
	Pedestals   CType = "pedestals"
	PixelStatus CType = "pixel_status"
	PixelRMS    CType = "pixel_rms"
	PixelGain   CType = "pixel_gain"
	PixelMask   CType = "pixel_mask"
	PixelBkgd   CType = "pixel_bkgd"
	CommonMode  CType = "common_mode"
	Geometry    CType = "geometry"
	PixelOffset CType = "pixel_offset"
	PixelDatast CType = "pixel_datast"
)

// CTypeTable maps each known calibration type to its storage dtype.
type CTypeTable map[CType]DType

// DefaultCTypes returns the standard calibration type table.
func DefaultCTypes() CTypeTable {
	return CTypeTable{
		Pedestals:   DTypeFloat32,
		PixelStatus: DTypeUint16,
		PixelRMS:    DTypeFloat32,
		PixelGain:   DTypeFloat32,
		PixelMask:   DTypeUint8,
		PixelBkgd:   DTypeFloat32,
		CommonMode:  DTypeFloat64,
		Geometry:    DTypeText,
		PixelOffset: DTypeFloat32,
		PixelDatast: DTypeUint16,
	}
}

// Lookup returns the dtype of the named calibration type.
func (t CTypeTable) Lookup(name string) (CType, DType, error) {
	ct := CType(name)

	dt, ok := t[ct]
	if !ok {
		return ct, DTypeUnknown, fmt.Errorf("%w: %q", ErrUnknownCType, name)
	}

	return ct, dt, nil
}

// Names returns the calibration type names in sorted order.
func (t CTypeTable) Names() []CType {
	return slices.Sorted(maps.Keys(t))
}
