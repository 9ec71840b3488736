// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"github.com/chewxy/math32"
	"github.com/emer/etable/minmax"
	"github.com/emer/homeostdp/trace"
	"github.com/goki/mat32"
)

///////////////////////////////////////////////////////////////////////
//  act.go contains the spiking activation params and functions

// LIFParams contains the leaky integrate-and-fire membrane parameters
// and per-neuron update functions.  Voltages are in mV and times in
// the same units as the network dt (msec).
type LIFParams struct {
	Thr     float32      `def:"-52" desc:"spike threshold voltage"`
	Rest    float32      `def:"-65" desc:"resting membrane voltage -- the voltage decays toward this value"`
	Reset   float32      `def:"-65" desc:"post-spike reset voltage"`
	Refrac  float32      `def:"5" min:"0" desc:"refractory (non-firing) period after a spike, during which input is ignored"`
	Tau     float32      `def:"100" min:"1" desc:"time constant of membrane voltage decay toward Rest"`
	VmRange minmax.F32   `view:"inline" desc:"range for the membrane voltage -- Min acts as a lower bound, unbounded by default"`
	Trace   trace.Params `view:"inline" desc:"short time-constant spike trace used by STDP -- by default set to Scale on each spike (non-additive)"`

	VmDecay float32 `view:"-" json:"-" xml:"-" desc:"exp(-dt / Tau), computed in ComputeDecays"`
}

func (ac *LIFParams) Defaults() {
	ac.Thr = -52
	ac.Rest = -65
	ac.Reset = -65
	ac.Refrac = 5
	ac.Tau = 100
	ac.VmRange.Set(math32.Inf(-1), math32.Inf(1))
	ac.Trace.Tau = 20
	ac.Trace.Scale = 1
	ac.Trace.Additive = false
	ac.Update()
}

// Update must be called after any changes to parameters
func (ac *LIFParams) Update() {
}

// ComputeDecays computes the voltage decay for given step size
func (ac *LIFParams) ComputeDecays(dt float32) {
	ac.VmDecay = trace.Decay(dt, ac.Tau)
}

// SetLBound sets the lower bound on the membrane voltage
func (ac *LIFParams) SetLBound(lb float32) {
	ac.VmRange.Min = lb
}

// VmFmInput updates the membrane voltage and refractory counter for one
// neuron given its input, returning 1 if the neuron spiked and 0 otherwise.
// Input is ignored while the neuron is refractory.
func (ac *LIFParams) VmFmInput(vm, refrac *float32, in, dt float32) float32 {
	*vm = ac.VmDecay*(*vm-ac.Rest) + ac.Rest
	if *refrac > 0 {
		in = 0
	}
	*refrac -= dt
	*vm += in
	spk := float32(0)
	if *vm >= ac.Thr {
		spk = 1
		*refrac = ac.Refrac
		*vm = ac.Reset
	}
	*vm = ac.VmRange.ClipVal(*vm)
	return spk
}

// InitVm returns the initial membrane voltage
func (ac *LIFParams) InitVm() float32 {
	return mat32.Max(ac.Rest, ac.VmRange.Min)
}
