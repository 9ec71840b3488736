// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"fmt"

	"github.com/emer/etable/etensor"
	"github.com/goki/ki/kit"
)

// Reducer collapses one axis of a tensor, used to reduce per-batch
// weight changes to a single change applied to the shared weights.
type Reducer interface {
	// Reduce collapses src along axis into dst, which is reshaped to
	// the shape of src without that axis.
	Reduce(dst, src *etensor.Float32, axis int) error
}

// ReduceFunc adapts an ordinary function to the Reducer interface
type ReduceFunc func(dst, src *etensor.Float32, axis int) error

func (rf ReduceFunc) Reduce(dst, src *etensor.Float32, axis int) error {
	return rf(dst, src, axis)
}

// ReduceTypes are the standard reductions, each of which is a Reducer
type ReduceTypes int32

//go:generate stringer -type=ReduceTypes

var KiT_ReduceTypes = kit.Enums.AddEnum(ReduceTypesN, kit.NotBitFlag, nil)

func (ev ReduceTypes) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *ReduceTypes) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

// The reductions
const (
	// MeanReduce averages over the axis
	MeanReduce ReduceTypes = iota

	// SumReduce sums over the axis
	SumReduce

	// MaxReduce takes the maximum over the axis
	MaxReduce

	ReduceTypesN
)

// ReduceShape returns the shape of src with given axis removed,
// along with the number of elements before, along and after the axis.
func ReduceShape(src *etensor.Float32, axis int) (shp []int, outer, n, inner int, err error) {
	nd := src.NumDims()
	if axis < 0 || axis >= nd {
		err = fmt.Errorf("%w: reduce axis %d for tensor with %d dims", ErrPrecondition, axis, nd)
		return
	}
	outer, inner = 1, 1
	for d := 0; d < nd; d++ {
		sz := src.Dim(d)
		switch {
		case d < axis:
			outer *= sz
		case d == axis:
			n = sz
			continue
		default:
			inner *= sz
		}
		shp = append(shp, sz)
	}
	if n == 0 {
		err = fmt.Errorf("%w: reduce over empty axis %d", ErrPrecondition, axis)
	}
	return
}

func (rt ReduceTypes) Reduce(dst, src *etensor.Float32, axis int) error {
	if rt < 0 || rt >= ReduceTypesN {
		return fmt.Errorf("%w: invalid reduction %v", ErrConfig, rt)
	}
	shp, outer, n, inner, err := ReduceShape(src, axis)
	if err != nil {
		return err
	}
	if len(shp) == 0 {
		shp = []int{1}
	}
	dst.SetShape(shp, nil, nil)
	sv := src.Values
	dv := dst.Values
	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			st := o*n*inner + i
			acc := sv[st]
			for k := 1; k < n; k++ {
				v := sv[st+k*inner]
				if rt == MaxReduce {
					if v > acc {
						acc = v
					}
				} else {
					acc += v
				}
			}
			if rt == MeanReduce {
				acc /= float32(n)
			}
			dv[o*inner+i] = acc
		}
	}
	return nil
}
