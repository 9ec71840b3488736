// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"fmt"

	"github.com/emer/etable/etensor"
	"github.com/emer/homeostdp/trace"
)

// Input is a dynamics engine whose spikes are given directly as input:
// any input value > 0 is a spike on that step.  Used for input layers
// driven by encoded data.
type Input struct {
	Nm          string       `desc:"name of the layer this engine runs, used for param selectors"`
	Cls         string       `desc:"class for applying parameter styles"`
	Shp         []int        `desc:"neuron shape of the layer, not including batch"`
	TraceParams trace.Params `view:"inline" desc:"short time-constant spike trace params"`

	Dt float32         `inactive:"+" desc:"step size of the last ComputeDecays -- 0 until set"`
	S  etensor.Float32 `view:"-" desc:"spikes (0 or 1) on the current step"`
	X  *trace.Integ    `view:"-" desc:"short time-constant spike trace"`
}

// NewInput returns a new Input engine with default params for given shape.
func NewInput(name string, shape []int) *Input {
	ip := &Input{Nm: name, Shp: append([]int(nil), shape...)}
	ip.Defaults()
	return ip
}

func (ip *Input) Defaults() {
	ip.TraceParams.Tau = 20
	ip.TraceParams.Scale = 1
	ip.TraceParams.Additive = false
	if ip.X == nil {
		ip.X = trace.NewInteg(ip.Shp)
	}
	ip.X.Params = ip.TraceParams
}

func (ip *Input) UpdateParams() {
	ip.X.Params = ip.TraceParams
	ip.X.Update()
}

func (ip *Input) TypeName() string { return "Input" }
func (ip *Input) Name() string     { return ip.Nm }
func (ip *Input) Class() string    { return ip.Cls }

func (ip *Input) Shape() []int { return ip.Shp }

func (ip *Input) Batch() int {
	if ip.S.NumDims() == 0 {
		return 0
	}
	return ip.S.Dim(0)
}

func (ip *Input) Spikes() *etensor.Float32 { return &ip.S }
func (ip *Input) Trace() *etensor.Float32  { return &ip.X.Vals }

func (ip *Input) ComputeDecays(dt float32) {
	ip.Dt = dt
	ip.X.ComputeDecays(dt)
}

func (ip *Input) SetBatchSize(batch int) {
	ip.S.SetShape(append([]int{batch}, ip.Shp...), nil, nil)
	ip.X.Resize(batch)
	ip.ResetState()
}

func (ip *Input) ResetState() {
	ip.S.SetZeros()
	ip.X.Reset()
}

// Step sets the spikes from the input (nil = no spikes) and updates the trace.
func (ip *Input) Step(in *etensor.Float32) error {
	if ip.Batch() == 0 || ip.Dt == 0 {
		return fmt.Errorf("%w: Input %v stepped before SetBatchSize and ComputeDecays", ErrPrecondition, ip.Nm)
	}
	n := ip.S.Len()
	if in != nil && in.Len() != n {
		return fmt.Errorf("%w: Input %v input has %d values, state has %d", ErrPrecondition, ip.Nm, in.Len(), n)
	}
	for i := 0; i < n; i++ {
		spk := float32(0)
		if in != nil && in.Values[i] > 0 {
			spk = 1
		}
		ip.S.Values[i] = spk
	}
	return ip.X.Integrate(ip.S.Values)
}
