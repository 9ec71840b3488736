// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package trace provides the leaky spike-trace integrator used for both the
short time-constant STDP trace and the long time-constant homeostatic
firing-rate trace.

Each step the trace decays by d = exp(-dt / Tau) and then accumulates the
current spikes:

	r_t = d * r_{t-1} + Scale * s_t

For a constant spike train the trace converges to Scale / (1 - d), so with
a large Tau it approximates the firing rate over a window of roughly Tau.
In non-additive mode the trace is instead set to Scale on each spike, which
is the classic nearest-spike STDP trace.
*/
package trace

import (
	"errors"
	"fmt"

	"github.com/emer/etable/etensor"
	"github.com/goki/mat32"
)

var (
	// ErrNotInit is returned when integrating before Resize and ComputeDecays.
	ErrNotInit = errors.New("trace: integrator not initialized")

	// ErrShape is returned when the spike tensor does not match the trace.
	ErrShape = errors.New("trace: shape mismatch")

	// ErrParam is returned for a non-positive time constant or step size.
	ErrParam = errors.New("trace: time constant and dt must be positive")
)

// Params are the trace integration parameters.
type Params struct {
	Tau      float32 `def:"20,1000" min:"0" desc:"time constant of trace decay, in the same time units as dt (msec) -- larger values integrate over a longer window and approximate a firing rate"`
	Scale    float32 `def:"1" desc:"amount added to (or set on) the trace for each spike"`
	Additive bool    `def:"true" desc:"add Scale on each spike (rate-like accumulator) instead of setting the trace to Scale (nearest-spike trace)"`
}

func (tp *Params) Defaults() {
	tp.Tau = 1000
	tp.Scale = 1
	tp.Additive = true
}

// Decay returns the per-step multiplicative decay exp(-dt / tau).
// Both dt and tau must be positive for 0 < d < 1: callers check with CheckTau.
func Decay(dt, tau float32) float32 {
	return mat32.Exp(-dt / tau)
}

// Integ is a leaky trace over a layer of neurons for each element of a batch.
// Vals has shape [batch, *Shape].
type Integ struct {
	Params

	// optional per-neuron time constants, overriding Tau when non-nil -- set with SetNeurTau
	NeurTau []float32 `view:"-"`

	// neuron shape of the layer, not including the batch dimension
	Shape []int `view:"-"`

	// current decay factor: one value for a scalar Tau, or one per neuron
	Decay []float32 `view:"-" json:"-"`

	// dt of the last ComputeDecays call -- 0 until decays have been computed
	Dt float32 `view:"-" json:"-"`

	// trace values, [batch, *Shape]
	Vals etensor.Float32 `view:"-" json:"-"`
}

// CheckTau returns an ErrParam error unless both dt and tau are positive.
func CheckTau(dt, tau float32) error {
	if dt > 0 && tau > 0 {
		return nil
	}
	return fmt.Errorf("%w: dt: %g tau: %g", ErrParam, dt, tau)
}

// NewInteg returns a new integrator with default params for a layer of given shape.
func NewInteg(shape []int) *Integ {
	ig := &Integ{}
	ig.Defaults()
	ig.Shape = append([]int(nil), shape...)
	return ig
}

// NumNeurons returns the number of neurons per batch element.
func (ig *Integ) NumNeurons() int {
	n := 1
	for _, d := range ig.Shape {
		n *= d
	}
	return n
}

// Batch returns the current batch size, 0 if not yet resized.
func (ig *Integ) Batch() int {
	if ig.Vals.NumDims() == 0 {
		return 0
	}
	return ig.Vals.Dim(0)
}

// IsInit returns true if both the buffer and the decays have been set up.
func (ig *Integ) IsInit() bool {
	return len(ig.Decay) > 0 && ig.Batch() > 0
}

// Update must be called after any changes to parameters.
// It recomputes the decays if a dt is already known.
func (ig *Integ) Update() {
	if ig.Dt > 0 {
		ig.ComputeDecays(ig.Dt)
	}
}

// SetTau sets a scalar time constant, clearing any per-neuron taus,
// and recomputes the decay.  A non-positive tau is rejected.
func (ig *Integ) SetTau(tau float32) error {
	if tau <= 0 {
		return fmt.Errorf("%w: tau: %g", ErrParam, tau)
	}
	ig.Tau = tau
	ig.NeurTau = nil
	ig.Update()
	return nil
}

// SetNeurTau sets per-neuron time constants, one per neuron in Shape,
// and recomputes the decays.
func (ig *Integ) SetNeurTau(taus []float32) error {
	if len(taus) != ig.NumNeurons() {
		return fmt.Errorf("%w: %d per-neuron taus for %d neurons", ErrShape, len(taus), ig.NumNeurons())
	}
	for i, tau := range taus {
		if tau <= 0 {
			return fmt.Errorf("%w: neuron %d tau: %g", ErrParam, i, tau)
		}
	}
	ig.NeurTau = append(ig.NeurTau[:0], taus...)
	ig.Update()
	return nil
}

// ComputeDecays computes the decay factors for the given step size.
// Must be called again whenever dt or a time constant changes.
// If dt or any time constant is not positive the decays are cleared,
// and Integrate returns the ErrParam error from Validate.
func (ig *Integ) ComputeDecays(dt float32) {
	ig.Dt = dt
	ig.Decay = ig.Decay[:0]
	if ig.Validate() != nil {
		return
	}
	if ig.NeurTau == nil {
		ig.Decay = append(ig.Decay, Decay(dt, ig.Tau))
		return
	}
	for _, tau := range ig.NeurTau {
		ig.Decay = append(ig.Decay, Decay(dt, tau))
	}
}

// Validate checks that dt and the time constants in use are all positive.
func (ig *Integ) Validate() error {
	if ig.NeurTau == nil {
		return CheckTau(ig.Dt, ig.Tau)
	}
	for _, tau := range ig.NeurTau {
		if err := CheckTau(ig.Dt, tau); err != nil {
			return err
		}
	}
	return nil
}

// Resize allocates a zeroed trace of shape [batch, *Shape].
// Prior trace values are discarded.
func (ig *Integ) Resize(batch int) {
	shp := append([]int{batch}, ig.Shape...)
	ig.Vals.SetShape(shp, nil, nil)
	ig.Vals.SetZeros()
}

// Reset zeros the trace in place.
func (ig *Integ) Reset() {
	ig.Vals.SetZeros()
}

// Integrate decays the trace and accumulates the given spikes (0 or 1),
// which must have the same number of values as the trace.
func (ig *Integ) Integrate(spikes []float32) error {
	if !ig.IsInit() {
		if ig.Dt != 0 {
			if err := ig.Validate(); err != nil {
				return err
			}
		}
		return ErrNotInit
	}
	vals := ig.Vals.Values
	if len(spikes) != len(vals) {
		return fmt.Errorf("%w: %d spikes for trace of %d", ErrShape, len(spikes), len(vals))
	}
	nn := ig.NumNeurons()
	scalar := len(ig.Decay) == 1
	d := ig.Decay[0]
	for i, s := range spikes {
		if !scalar {
			d = ig.Decay[i%nn]
		}
		vals[i] *= d
		if ig.Additive {
			vals[i] += ig.Scale * s
		} else if s > 0 {
			vals[i] = ig.Scale
		}
	}
	return nil
}

// Mean returns the mean trace value over all batch elements and neurons.
func (ig *Integ) Mean() float32 {
	vals := ig.Vals.Values
	if len(vals) == 0 {
		return 0
	}
	sum := float32(0)
	for _, v := range vals {
		sum += v
	}
	return sum / float32(len(vals))
}
