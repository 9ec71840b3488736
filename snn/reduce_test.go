// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"
	"github.com/emer/etable/etensor"
)

func TestReduce(t *testing.T) {
	src := &etensor.Float32{}
	src.SetShape([]int{2, 3}, nil, nil)
	copy(src.Values, []float32{1, 2, 3, 4, 5, 6})

	tests := []struct {
		rt   ReduceTypes
		axis int
		cors []float32
	}{
		{MeanReduce, 0, []float32{2.5, 3.5, 4.5}},
		{SumReduce, 0, []float32{5, 7, 9}},
		{MaxReduce, 0, []float32{4, 5, 6}},
		{MeanReduce, 1, []float32{2, 5}},
		{SumReduce, 1, []float32{6, 15}},
		{MaxReduce, 1, []float32{3, 6}},
	}
	dst := &etensor.Float32{}
	for _, tt := range tests {
		if err := tt.rt.Reduce(dst, src, tt.axis); err != nil {
			t.Fatal(err)
		}
		if dst.Len() != len(tt.cors) {
			t.Errorf("%v axis %d: len %d != %d", tt.rt, tt.axis, dst.Len(), len(tt.cors))
			continue
		}
		for i, cor := range tt.cors {
			if dif := math32.Abs(dst.Values[i] - cor); dif > difTol {
				t.Errorf("%v axis %d [%d]: %v != correct %v", tt.rt, tt.axis, i, dst.Values[i], cor)
			}
		}
	}
}

func TestReduceMiddleAxis(t *testing.T) {
	src := &etensor.Float32{}
	src.SetShape([]int{2, 2, 2}, nil, nil)
	copy(src.Values, []float32{1, 2, 3, 4, 5, 6, 7, 8})
	dst := &etensor.Float32{}
	if err := SumReduce.Reduce(dst, src, 1); err != nil {
		t.Fatal(err)
	}
	if dst.NumDims() != 2 || dst.Dim(0) != 2 || dst.Dim(1) != 2 {
		t.Fatalf("shape: %v", dst.Shapes())
	}
	cors := []float32{4, 6, 12, 14}
	for i, cor := range cors {
		if dst.Values[i] != cor {
			t.Errorf("[%d]: %v != correct %v", i, dst.Values[i], cor)
		}
	}
}

func TestReduceErrors(t *testing.T) {
	src := &etensor.Float32{}
	src.SetShape([]int{2, 3}, nil, nil)
	dst := &etensor.Float32{}
	if err := MeanReduce.Reduce(dst, src, 2); !errors.Is(err, ErrPrecondition) {
		t.Errorf("bad axis: expected ErrPrecondition, got %v", err)
	}
	if err := MeanReduce.Reduce(dst, src, -1); !errors.Is(err, ErrPrecondition) {
		t.Errorf("negative axis: expected ErrPrecondition, got %v", err)
	}
	if err := ReduceTypesN.Reduce(dst, src, 0); !errors.Is(err, ErrConfig) {
		t.Errorf("ReduceTypesN: expected ErrConfig, got %v", err)
	}
}

func TestReduceFunc(t *testing.T) {
	first := ReduceFunc(func(dst, src *etensor.Float32, axis int) error {
		shp, _, _, inner, err := ReduceShape(src, axis)
		if err != nil {
			return err
		}
		dst.SetShape(shp, nil, nil)
		copy(dst.Values, src.Values[:inner])
		return nil
	})
	var rd Reducer = first
	src := &etensor.Float32{}
	src.SetShape([]int{2, 2}, nil, nil)
	copy(src.Values, []float32{1, 2, 3, 4})
	dst := &etensor.Float32{}
	if err := rd.Reduce(dst, src, 0); err != nil {
		t.Fatal(err)
	}
	if dst.Values[0] != 1 || dst.Values[1] != 2 {
		t.Errorf("custom reduce: %v", dst.Values)
	}
}
