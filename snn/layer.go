// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"fmt"
	"log"

	"github.com/emer/emergent/params"
	"github.com/emer/etable/etensor"
	"github.com/emer/homeostdp/trace"
)

// Dynamics is the base spiking engine that a Layer delegates its
// voltage and spike computation to.  State tensors are [batch, *Shape].
type Dynamics interface {
	// Shape returns the neuron shape, not including batch
	Shape() []int

	// Batch returns the current batch size, 0 before SetBatchSize
	Batch() int

	// Step runs one time step with given input (nil = no input)
	Step(in *etensor.Float32) error

	// ResetState resets all state to initial values
	ResetState()

	// ComputeDecays recomputes all decays for given step size
	ComputeDecays(dt float32)

	// SetBatchSize reallocates all state for given batch size
	SetBatchSize(batch int)

	// Spikes returns the spikes (0 or 1) of the current step
	Spikes() *etensor.Float32

	// Trace returns the short time-constant spike trace used by STDP
	Trace() *etensor.Float32

	// UpdateParams updates derived values after parameter changes
	UpdateParams()
}

// Layer is a layer of spiking neurons that optionally records a long
// time-constant homeostatic firing-rate trace.  Homeo is nil when
// homeostatic traces are not recorded.
type Layer struct {
	Nm    string       `desc:"name of layer -- must be unique within network"`
	Cls   string       `desc:"class for applying parameter styles, can be space separated multple tags"`
	Off   bool         `desc:"inactivate this layer -- it is not stepped and sends no input"`
	Dyn   Dynamics     `view:"-" desc:"base dynamics engine computing voltages and spikes"`
	Homeo *trace.Integ `desc:"homeostatic firing-rate trace -- nil if this layer does not record one"`
	Index int          `inactive:"+" desc:"index of this layer in the network"`

	// pathways into and out of this layer, set by Network.ConnectLayers
	RecvConns []*Conn `view:"-"`
	SendConns []*Conn `view:"-"`
}

// NewLayer returns a new layer running given dynamics.  If homeo is true,
// it records a homeostatic trace with default params (Tau = 1000).
func NewLayer(name string, dyn Dynamics, homeo bool) *Layer {
	ly := &Layer{Nm: name, Dyn: dyn}
	if homeo {
		ly.Homeo = trace.NewInteg(dyn.Shape())
	}
	return ly
}

// NewLIFLayer returns a new layer of LIF neurons of given shape.
func NewLIFLayer(name string, shape []int, homeo bool) *Layer {
	return NewLayer(name, NewLIF(name, shape), homeo)
}

// NewInputLayer returns a new input layer of given shape.
func NewInputLayer(name string, shape []int, homeo bool) *Layer {
	return NewLayer(name, NewInput(name, shape), homeo)
}

// Params styler interface
func (ly *Layer) TypeName() string { return "Layer" }
func (ly *Layer) Name() string     { return ly.Nm }
func (ly *Layer) Class() string    { return ly.Cls }

func (ly *Layer) Shape() []int { return ly.Dyn.Shape() }

// NumNeurons returns the number of neurons per batch element
func (ly *Layer) NumNeurons() int {
	n := 1
	for _, d := range ly.Dyn.Shape() {
		n *= d
	}
	return n
}

func (ly *Layer) Batch() int { return ly.Dyn.Batch() }

// HasHomeo returns true if this layer records a homeostatic trace
func (ly *Layer) HasHomeo() bool { return ly.Homeo != nil }

// Spikes returns the current spikes, [batch, *shape]
func (ly *Layer) Spikes() *etensor.Float32 { return ly.Dyn.Spikes() }

// Trace returns the short spike trace, [batch, *shape]
func (ly *Layer) Trace() *etensor.Float32 { return ly.Dyn.Trace() }

// Rate returns the homeostatic trace, or nil if not recorded
func (ly *Layer) Rate() *etensor.Float32 {
	if ly.Homeo == nil {
		return nil
	}
	return &ly.Homeo.Vals
}

// Validate checks that the layer can be stepped
func (ly *Layer) Validate() error {
	if ly.Dyn == nil {
		return fmt.Errorf("%w: layer %v has no dynamics", ErrConfig, ly.Nm)
	}
	if ly.Batch() == 0 {
		return fmt.Errorf("%w: layer %v batch size not set", ErrPrecondition, ly.Nm)
	}
	if ly.Homeo != nil && !ly.Homeo.IsInit() {
		return fmt.Errorf("%w: layer %v homeostatic trace not initialized", ErrPrecondition, ly.Nm)
	}
	return nil
}

// Step runs one time step: the base dynamics, then the homeostatic
// trace from the new spikes.
func (ly *Layer) Step(in *etensor.Float32) error {
	if err := ly.Dyn.Step(in); err != nil {
		return err
	}
	if ly.Homeo == nil {
		return nil
	}
	if err := ly.Homeo.Integrate(ly.Dyn.Spikes().Values); err != nil {
		return fmt.Errorf("%w: layer %v: %w", ErrPrecondition, ly.Nm, err)
	}
	return nil
}

// ResetState resets the base state and zeros the homeostatic trace
func (ly *Layer) ResetState() {
	ly.Dyn.ResetState()
	if ly.Homeo != nil {
		ly.Homeo.Reset()
	}
}

// ComputeDecays recomputes base and homeostatic decays for given step size
func (ly *Layer) ComputeDecays(dt float32) {
	ly.Dyn.ComputeDecays(dt)
	if ly.Homeo != nil {
		ly.Homeo.ComputeDecays(dt)
	}
}

// SetBatchSize reallocates the base state and the homeostatic trace
func (ly *Layer) SetBatchSize(batch int) {
	ly.Dyn.SetBatchSize(batch)
	if ly.Homeo != nil {
		ly.Homeo.Resize(batch)
	}
}

// UpdateParams updates derived values, including decays, after param changes
func (ly *Layer) UpdateParams() {
	ly.Dyn.UpdateParams()
	if ly.Homeo != nil {
		ly.Homeo.Update()
	}
}

// ApplyParams applies given parameter style Sheet to this layer and its
// dynamics engine, then updates derived values.
// Returns true if any params were set, and error if there were any errors.
func (ly *Layer) ApplyParams(pars *params.Sheet, setMsg bool) (bool, error) {
	app, err := pars.Apply(ly, setMsg)
	if dst, ok := ly.Dyn.(params.Styler); ok {
		dapp, derr := pars.Apply(dst, setMsg)
		app = app || dapp
		if derr != nil {
			err = derr
		}
	}
	if app {
		ly.UpdateParams()
	}
	if err != nil {
		log.Printf("snn.Layer %v ApplyParams: %v\n", ly.Nm, err)
	}
	return app, err
}
