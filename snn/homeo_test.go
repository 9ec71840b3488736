// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"errors"
	"math"
	"testing"

	"github.com/chewxy/math32"
	"github.com/emer/emergent/prjn"
	"github.com/emer/etable/etensor"
	"github.com/emer/etable/minmax"
	"gonum.org/v1/gonum/mat"
)

func homeoRule(t *testing.T, cn *Conn, gamma float32, nonneg bool) *HomeoSTDP {
	t.Helper()
	lp := LearnParams{}
	lp.Defaults()
	lp.SetNu()
	hs, err := NewHomeoSTDP(cn, lp, HomeoParams{Gamma: gamma, Nonneg: nonneg})
	if err != nil {
		t.Fatal(err)
	}
	return hs
}

// TestHomeoBroadcast checks that each weight is scaled by the rate of its
// own receiving neuron: W' = W - gamma * W * diag(rbar).
func TestHomeoBroadcast(t *testing.T) {
	const slen, rlen = 3, 2
	gamma := float32(0.1)
	cn := testConn(t, slen, rlen, 2, prjn.NewFull(), true, 0)
	cn.SetWtsFunc(func(si, ri int) float32 { return float32(si*rlen+ri+1) * 0.1 })
	w0 := make([]float64, len(cn.W.Values))
	for i, w := range cn.W.Values {
		w0[i] = float64(w)
	}
	// batch rows [1, 2] and [3, 4] -> mean [2, 3]
	copy(cn.Recv.Rate().Values, []float32{1, 2, 3, 4})

	hs := homeoRule(t, cn, gamma, false)
	if err := hs.Update(); err != nil {
		t.Fatal(err)
	}

	wm := mat.NewDense(slen, rlen, w0)
	rd := mat.NewDiagDense(rlen, []float64{2, 3})
	var dw, cor mat.Dense
	dw.Mul(wm, rd)
	dw.Scale(float64(gamma), &dw)
	cor.Sub(wm, &dw)
	for si := 0; si < slen; si++ {
		for ri := 0; ri < rlen; ri++ {
			got := float64(cn.W.Values[si*rlen+ri])
			if dif := math.Abs(got - cor.At(si, ri)); dif > 1e-6 {
				t.Errorf("W[%d,%d]: %v != correct %v", si, ri, got, cor.At(si, ri))
			}
		}
	}
}

// TestHomeoSingleSynapse: one synapse of weight 1, gamma 0.1, decay 0.9,
// the target spikes on every step.
func TestHomeoSingleSynapse(t *testing.T) {
	net := NewNetwork("Homeo")
	src := net.AddInputLayer("Src", []int{1}, true)
	tgt := net.AddInputLayer("Tgt", []int{1}, true)
	cn := net.ConnectLayers(src, tgt, prjn.NewFull())
	tau := float32(-1 / math.Log(0.9))
	for _, ly := range net.Layers {
		ly.Homeo.SetTau(tau)
	}
	hs := homeoRule(t, cn, 0.1, false)
	net.AddRule(hs)
	if err := net.Build(1); err != nil {
		t.Fatal(err)
	}
	if err := cn.SetSynVal(0, 0, 1); err != nil {
		t.Fatal(err)
	}

	ext := map[string]*etensor.Float32{"Tgt": newInput(1)}
	cors := []struct{ r, w float32 }{
		{1, 0.9},
		{1.9, 0.9 - 0.1*1.9*0.9},
		{2.71, (0.9 - 0.1*1.9*0.9) * (1 - 0.1*2.71)},
	}
	for i, cor := range cors {
		if err := net.Step(ext); err != nil {
			t.Fatal(err)
		}
		if dif := math32.Abs(tgt.Rate().Values[0] - cor.r); dif > difTol {
			t.Errorf("step %d R: %v != correct %v", i+1, tgt.Rate().Values[0], cor.r)
		}
		if dif := math32.Abs(cn.W.Values[0] - cor.w); dif > difTol {
			t.Errorf("step %d w: %v != correct %v", i+1, cn.W.Values[0], cor.w)
		}
	}
	if src.Rate().Values[0] != 0 {
		t.Errorf("silent source R: %v", src.Rate().Values[0])
	}
}

func TestHomeoNonneg(t *testing.T) {
	for _, nonneg := range []bool{false, true} {
		cn := testConn(t, 2, 2, 1, prjn.NewFull(), true, -0.5)
		hs := homeoRule(t, cn, 0, nonneg)
		if err := hs.Update(); err != nil {
			t.Fatal(err)
		}
		cor := float32(-0.5)
		if nonneg {
			cor = 0
		}
		for i, w := range cn.W.Values {
			if w != cor {
				t.Errorf("nonneg %v W[%d]: %v != correct %v", nonneg, i, w, cor)
			}
		}
	}
}

func TestHomeoNonnegHebbian(t *testing.T) {
	cn := testConn(t, 2, 2, 1, prjn.NewFull(), true, 0.01)
	setState(cn.Send, []float32{1, 1}, []float32{0, 0})
	setState(cn.Recv, []float32{0, 0}, []float32{1, 1})
	lp := LearnParams{}
	lp.Defaults()
	lp.SetNu(1, 0)
	for _, gamma := range []float32{0, 0.5, 2} {
		cn.SetWtsFunc(func(si, ri int) float32 { return 0.01 })
		copy(cn.Recv.Rate().Values, []float32{1, 3})
		hs, err := NewHomeoSTDP(cn, lp, HomeoParams{Gamma: gamma, Nonneg: true})
		if err != nil {
			t.Fatal(err)
		}
		if err := hs.Update(); err != nil {
			t.Fatal(err)
		}
		for i, w := range cn.W.Values {
			if w < 0 {
				t.Errorf("gamma %v W[%d] = %v < 0", gamma, i, w)
			}
		}
	}
}

func TestHomeoLocalMask(t *testing.T) {
	cn := testConn(t, 3, 3, 1, prjn.NewOneToOne(), true, 1)
	if cn.Typ != LocalConn || cn.NSyns != 3 || cn.Cons == nil {
		t.Fatalf("one-to-one: type %v nsyns %d", cn.Typ, cn.NSyns)
	}
	cn.WtRange.Set(-10, 10)
	for _, ly := range []*Layer{cn.Send, cn.Recv} {
		for i := range ly.Spikes().Values {
			ly.Spikes().Values[i] = 1
			ly.Trace().Values[i] = 1
			ly.Rate().Values[i] = 1
		}
	}
	lp := LearnParams{}
	lp.Defaults()
	lp.SetNu(0.1, 0.5)
	hs, err := NewHomeoSTDP(cn, lp, HomeoParams{Gamma: 0.1})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := hs.Update(); err != nil {
			t.Fatal(err)
		}
	}
	for si := 0; si < 3; si++ {
		for ri := 0; ri < 3; ri++ {
			w := cn.W.Values[si*3+ri]
			if si != ri && w != 0 {
				t.Errorf("masked W[%d,%d] = %v", si, ri, w)
			}
			if si == ri && w == 1 {
				t.Errorf("existing W[%d,%d] did not learn", si, ri)
			}
		}
	}
	if !math32.IsNaN(cn.SynVal(0, 1)) {
		t.Errorf("SynVal of missing synapse: %v", cn.SynVal(0, 1))
	}
}

// fakeSyn is a Synapses with a topology the rules do not support
type fakeSyn struct {
	typ        ConnTypes
	send, recv *Layer
	w          etensor.Float32
}

func (fs *fakeSyn) Name() string              { return "fake" }
func (fs *fakeSyn) ConnType() ConnTypes       { return fs.typ }
func (fs *fakeSyn) SendLay() *Layer           { return fs.send }
func (fs *fakeSyn) RecvLay() *Layer           { return fs.recv }
func (fs *fakeSyn) Weights() *etensor.Float32 { return &fs.w }
func (fs *fakeSyn) Mask() []bool              { return nil }
func (fs *fakeSyn) Bounds() minmax.F32        { return minmax.F32{Min: -1, Max: 1} }
func (fs *fakeSyn) IsOff() bool               { return false }

func TestHomeoConfigErrors(t *testing.T) {
	lp := LearnParams{}
	lp.Defaults()
	hp := HomeoParams{}
	hp.Defaults()

	send := NewInputLayer("Send", []int{2}, true)
	recv := NewLIFLayer("Recv", []int{2}, true)
	for _, typ := range []ConnTypes{ConvConn, PoolConn} {
		fs := &fakeSyn{typ: typ, send: send, recv: recv}
		if _, err := NewHomeoSTDP(fs, lp, hp); !errors.Is(err, ErrConfig) {
			t.Errorf("%v: expected ErrConfig, got %v", typ, err)
		}
	}

	plain := NewLIFLayer("Plain", []int{2}, false)
	cn := NewConn(send, plain, prjn.NewFull())
	if _, err := NewHomeoSTDP(cn, lp, hp); !errors.Is(err, ErrConfig) {
		t.Errorf("recv without homeo: expected ErrConfig, got %v", err)
	}
	cn = NewConn(plain, recv, prjn.NewFull())
	if _, err := NewHomeoSTDP(cn, lp, hp); !errors.Is(err, ErrConfig) {
		t.Errorf("send without homeo: expected ErrConfig, got %v", err)
	}
	if _, err := NewPostPre(cn, lp); err != nil {
		t.Errorf("PostPre does not need homeo: %v", err)
	}

	cn.Typ = ConvConn
	if err := cn.Build(); !errors.Is(err, ErrConfig) {
		t.Errorf("build conv: expected ErrConfig, got %v", err)
	}
}

func TestBatchReducerSize(t *testing.T) {
	short := ReduceFunc(func(dst, src *etensor.Float32, axis int) error {
		dst.SetShape([]int{1}, nil, nil)
		return nil
	})
	long := ReduceFunc(func(dst, src *etensor.Float32, axis int) error {
		dst.SetShape([]int{src.Len()}, nil, nil)
		return nil
	})
	for _, rd := range []Reducer{short, long} {
		cn := testConn(t, 2, 3, 2, prjn.NewFull(), true, 1)
		copy(cn.Recv.Rate().Values, []float32{1, 1, 1, 1, 1, 1})
		setState(cn.Send, []float32{1, 1, 1, 1}, []float32{1, 1, 1, 1})
		hs := homeoRule(t, cn, 0.1, false)
		hs.Base.Reducer = rd
		if err := hs.Update(); !errors.Is(err, ErrPrecondition) {
			t.Errorf("HomeoSTDP: expected ErrPrecondition, got %v", err)
		}
		if err := hs.Base.Hebbian(); !errors.Is(err, ErrPrecondition) {
			t.Errorf("Hebbian: expected ErrPrecondition, got %v", err)
		}
		for i, w := range cn.W.Values {
			if w != 1 {
				t.Errorf("W[%d] changed after bad reduction: %v", i, w)
			}
		}
	}
}

func TestHomeoPrecondition(t *testing.T) {
	cn := testConn(t, 2, 3, 2, prjn.NewFull(), true, 1)
	hs := homeoRule(t, cn, 0.1, false)
	cn.Recv.Homeo.Resize(3)
	if err := hs.Update(); !errors.Is(err, ErrPrecondition) {
		t.Errorf("rate batch mismatch: expected ErrPrecondition, got %v", err)
	}

	cn = testConn(t, 2, 3, 2, prjn.NewFull(), true, 1)
	hs = homeoRule(t, cn, 0.1, false)
	cn.Recv.SetBatchSize(1)
	if err := hs.Update(); !errors.Is(err, ErrPrecondition) {
		t.Errorf("layer batch mismatch: expected ErrPrecondition, got %v", err)
	}
}
