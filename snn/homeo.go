// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"fmt"
	"log"

	"github.com/emer/emergent/params"
)

// HomeoParams are the homeostatic plasticity parameters
type HomeoParams struct {
	Gamma  float32 `def:"0.005" min:"0" desc:"learning rate for homeostatic plasticity: each weight is reduced by Gamma times the receiving neuron's firing-rate trace times the weight"`
	Nonneg bool    `desc:"clamp all weights to be >= 0 after every update"`
}

func (hp *HomeoParams) Defaults() {
	hp.Gamma = 0.005
	hp.Nonneg = false
}

// HomeoSTDP is the PostPre STDP rule with an additional homeostatic term
// depending on the receiving neuron's firing rate:
//
//	dW[s,t] = -Gamma * reduce_b(R_post[b,t] * W[s,t])
//
// which scales down all incoming weights of neurons that fire a lot.
// Both layers must record homeostatic traces.
type HomeoSTDP struct {
	Base  *PostPre    `desc:"base STDP rule, applied after the homeostatic term"`
	Homeo HomeoParams `view:"inline" desc:"homeostatic parameters"`
}

// NewHomeoSTDP returns a new HomeoSTDP rule on given connection.
// Returns an ErrConfig error if the topology is not supported, or if
// either layer does not record a homeostatic trace.
func NewHomeoSTDP(syn Synapses, lp LearnParams, hp HomeoParams) (*HomeoSTDP, error) {
	base, err := NewPostPre(syn, lp)
	if err != nil {
		return nil, err
	}
	if !syn.SendLay().HasHomeo() || !syn.RecvLay().HasHomeo() {
		return nil, fmt.Errorf("%w: connection %v: both sending (%v) and receiving (%v) layers must record homeostatic traces", ErrConfig, syn.Name(), syn.SendLay().Nm, syn.RecvLay().Nm)
	}
	return &HomeoSTDP{Base: base, Homeo: hp}, nil
}

// Params styler interface
func (hs *HomeoSTDP) TypeName() string { return "HomeoSTDP" }
func (hs *HomeoSTDP) Name() string     { return hs.Base.Name() }
func (hs *HomeoSTDP) Class() string    { return "" }

func (hs *HomeoSTDP) Conn() Synapses { return hs.Base.Syn }

// Update applies the homeostatic term, then the base STDP update
// (Hebbian terms, decay, bounds), then the non-negativity constraint.
func (hs *HomeoSTDP) Update() error {
	if !hs.Base.Learn.Learn {
		return nil
	}
	if err := hs.HomeoDWt(); err != nil {
		return err
	}
	if err := hs.Base.Update(); err != nil {
		return err
	}
	if hs.Homeo.Nonneg {
		wv := hs.Base.Syn.Weights().Values
		for wi, w := range wv {
			if w < 0 {
				wv[wi] = 0
			}
		}
	}
	return nil
}

// HomeoDWt applies the homeostatic term.  The receiving trace is viewed as
// [batch, recv] and broadcast along the recv axis of the [send, recv]
// weights, so each weight is scaled by the rate of its own receiving neuron.
func (hs *HomeoSTDP) HomeoDWt() error {
	pp := hs.Base
	nb, slen, rlen, err := pp.dims()
	if err != nil {
		return err
	}
	rate := pp.Syn.RecvLay().Rate()
	if rate == nil || rate.Len() != nb*rlen {
		return fmt.Errorf("%w: connection %v receiving trace does not match [%d, %d]", ErrPrecondition, pp.Syn.Name(), nb, rlen)
	}
	rv := rate.Values
	wv := pp.Syn.Weights().Values
	pp.buf.SetShape([]int{nb, slen, rlen}, nil, nil)
	bv := pp.buf.Values
	for b := 0; b < nb; b++ {
		br := rv[b*rlen : (b+1)*rlen]
		for si := 0; si < slen; si++ {
			ws := wv[si*rlen : (si+1)*rlen]
			row := bv[(b*slen+si)*rlen : (b*slen+si+1)*rlen]
			for ri, w := range ws {
				row[ri] = hs.Homeo.Gamma * br[ri] * w
			}
		}
	}
	if err := pp.reduceBatch(slen, rlen); err != nil {
		return err
	}
	mask := pp.Syn.Mask()
	for wi, d := range pp.dw.Values {
		if mask != nil && !mask[wi] {
			continue
		}
		wv[wi] -= d
	}
	return nil
}

// ApplyParams applies given parameter style Sheet to this rule.
func (hs *HomeoSTDP) ApplyParams(pars *params.Sheet, setMsg bool) (bool, error) {
	app, err := pars.Apply(hs, setMsg)
	if err != nil {
		log.Printf("snn.HomeoSTDP %v ApplyParams: %v\n", hs.Name(), err)
	}
	return app, err
}
