// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"fmt"

	"github.com/emer/etable/etensor"
	"github.com/emer/homeostdp/trace"
)

// LIF is the leaky integrate-and-fire dynamics engine for a layer of
// neurons, holding per-(batch, neuron) state of shape [batch, *Shp].
type LIF struct {
	Nm  string    `desc:"name of the layer this engine runs, used for param selectors"`
	Cls string    `desc:"class for applying parameter styles"`
	Shp []int     `desc:"neuron shape of the layer, not including batch"`
	Act LIFParams `view:"add-fields" desc:"membrane parameters"`

	Dt     float32         `inactive:"+" desc:"step size of the last ComputeDecays -- 0 until set"`
	V      etensor.Float32 `view:"-" desc:"membrane voltage"`
	S      etensor.Float32 `view:"-" desc:"spikes (0 or 1) on the current step"`
	Refrac etensor.Float32 `view:"-" desc:"refractory counter -- input is ignored while > 0"`
	X      *trace.Integ    `view:"-" desc:"short time-constant spike trace"`
}

// NewLIF returns a new LIF engine with default params for given shape.
func NewLIF(name string, shape []int) *LIF {
	lf := &LIF{Nm: name, Shp: append([]int(nil), shape...)}
	lf.Defaults()
	return lf
}

func (lf *LIF) Defaults() {
	lf.Act.Defaults()
	if lf.X == nil {
		lf.X = trace.NewInteg(lf.Shp)
	}
	lf.X.Params = lf.Act.Trace
}

// UpdateParams updates all params given any changes that might have been made to individual values
func (lf *LIF) UpdateParams() {
	lf.Act.Update()
	lf.X.Params = lf.Act.Trace
	if lf.Dt > 0 {
		lf.ComputeDecays(lf.Dt)
	}
}

// Params styler interface
func (lf *LIF) TypeName() string { return "LIF" }
func (lf *LIF) Name() string     { return lf.Nm }
func (lf *LIF) Class() string    { return lf.Cls }

func (lf *LIF) Shape() []int { return lf.Shp }

func (lf *LIF) Batch() int {
	if lf.S.NumDims() == 0 {
		return 0
	}
	return lf.S.Dim(0)
}

func (lf *LIF) Spikes() *etensor.Float32 { return &lf.S }
func (lf *LIF) Trace() *etensor.Float32  { return &lf.X.Vals }

// ComputeDecays sets the voltage and trace decays for given step size
func (lf *LIF) ComputeDecays(dt float32) {
	lf.Dt = dt
	lf.Act.ComputeDecays(dt)
	lf.X.ComputeDecays(dt)
}

// SetBatchSize allocates all state for given batch size, at initial values
func (lf *LIF) SetBatchSize(batch int) {
	shp := append([]int{batch}, lf.Shp...)
	lf.V.SetShape(shp, nil, nil)
	lf.S.SetShape(shp, nil, nil)
	lf.Refrac.SetShape(shp, nil, nil)
	lf.X.Resize(batch)
	lf.ResetState()
}

// ResetState resets voltages to their initial value and zeros everything else
func (lf *LIF) ResetState() {
	vm := lf.Act.InitVm()
	for i := range lf.V.Values {
		lf.V.Values[i] = vm
	}
	lf.S.SetZeros()
	lf.Refrac.SetZeros()
	lf.X.Reset()
}

// Step runs one simulation step with given input current, which must
// have the same number of values as the state (nil = no input).
func (lf *LIF) Step(in *etensor.Float32) error {
	if lf.Batch() == 0 || lf.Dt == 0 {
		return fmt.Errorf("%w: LIF %v stepped before SetBatchSize and ComputeDecays", ErrPrecondition, lf.Nm)
	}
	n := lf.V.Len()
	if in != nil && in.Len() != n {
		return fmt.Errorf("%w: LIF %v input has %d values, state has %d", ErrPrecondition, lf.Nm, in.Len(), n)
	}
	for i := 0; i < n; i++ {
		x := float32(0)
		if in != nil {
			x = in.Values[i]
		}
		lf.S.Values[i] = lf.Act.VmFmInput(&lf.V.Values[i], &lf.Refrac.Values[i], x, lf.Dt)
	}
	return lf.X.Integrate(lf.S.Values)
}
