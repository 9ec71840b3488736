// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"fmt"
	"log"

	"github.com/emer/emergent/params"
	"github.com/emer/etable/etensor"
)

// Rule is a learning rule that updates the weights of one connection.
// Update is called once per time step, after all layers have stepped.
type Rule interface {
	// Name returns the name of the rule, typically that of its connection
	Name() string

	// Conn returns the connection whose weights the rule updates
	Conn() Synapses

	// Update applies one learning step to the weights
	Update() error

	// ApplyParams applies a parameter style sheet to the rule
	ApplyParams(pars *params.Sheet, setMsg bool) (bool, error)
}

// LearnParams are the pair-based STDP learning parameters
type LearnParams struct {
	Learn   bool        `def:"true" desc:"enable learning for this rule"`
	NuPre   float32     `def:"0.0001" desc:"learning rate for pre-synaptic events: depression proportional to pre spikes times the post-synaptic trace"`
	NuPost  float32     `def:"0.01" desc:"learning rate for post-synaptic events: potentiation proportional to the pre-synaptic trace times post spikes"`
	WtDecay float32     `def:"0" min:"0" max:"1" desc:"proportion of each weight subtracted every update"`
	Reduce  ReduceTypes `desc:"how per-batch weight changes are reduced to a single change on the shared weights"`
}

func (lp *LearnParams) Defaults() {
	lp.Learn = true
	lp.NuPre = 0.0001
	lp.NuPost = 0.01
	lp.WtDecay = 0
	lp.Reduce = MeanReduce
}

// SetNu sets both learning rates from one value (same for pre and post)
// or from a (pre, post) pair.
func (lp *LearnParams) SetNu(nu ...float32) {
	switch len(nu) {
	case 0:
		lp.NuPre, lp.NuPost = 0, 0
	case 1:
		lp.NuPre, lp.NuPost = nu[0], nu[0]
	default:
		lp.NuPre, lp.NuPost = nu[0], nu[1]
	}
}

// PostPre is the pair-based STDP rule: pre-synaptic spikes depress the
// weight in proportion to the post-synaptic trace, and post-synaptic
// spikes potentiate it in proportion to the pre-synaptic trace.
type PostPre struct {
	Syn     Synapses    `view:"-" desc:"connection whose weights are updated"`
	Learn   LearnParams `view:"inline" desc:"learning rates, decay and reduction"`
	Reducer Reducer     `view:"-" desc:"custom batch reduction, overriding Learn.Reduce when non-nil"`

	buf etensor.Float32 // [batch, send, recv] per-batch changes
	dw  etensor.Float32 // [send, recv] reduced change
}

// CheckTopology returns an ErrConfig error if the connection topology
// is not supported by the rules in this package.
func CheckTopology(syn Synapses) error {
	switch syn.ConnType() {
	case DenseConn, LocalConn:
		return nil
	}
	return fmt.Errorf("%w: connection %v topology %v is not supported by this learning rule", ErrConfig, syn.Name(), syn.ConnType())
}

// NewPostPre returns a new PostPre rule on given connection.
func NewPostPre(syn Synapses, lp LearnParams) (*PostPre, error) {
	if err := CheckTopology(syn); err != nil {
		return nil, err
	}
	return &PostPre{Syn: syn, Learn: lp}, nil
}

// Params styler interface
func (pp *PostPre) TypeName() string { return "PostPre" }
func (pp *PostPre) Name() string     { return pp.Syn.Name() }
func (pp *PostPre) Class() string    { return "" }

func (pp *PostPre) Conn() Synapses { return pp.Syn }

// BatchReducer returns the reduction in use
func (pp *PostPre) BatchReducer() Reducer {
	if pp.Reducer != nil {
		return pp.Reducer
	}
	return pp.Learn.Reduce
}

// Update applies the Hebbian terms, then weight decay and bounds.
func (pp *PostPre) Update() error {
	if !pp.Learn.Learn {
		return nil
	}
	if err := pp.Hebbian(); err != nil {
		return err
	}
	pp.DecayWts()
	ClipWts(pp.Syn.Weights().Values, pp.Syn.Mask(), pp.Syn.Bounds())
	return nil
}

// dims returns batch, send and recv sizes, checking that both layers
// and the weights agree.
func (pp *PostPre) dims() (nb, slen, rlen int, err error) {
	slay := pp.Syn.SendLay()
	rlay := pp.Syn.RecvLay()
	wt := pp.Syn.Weights()
	if wt.NumDims() != 2 {
		err = fmt.Errorf("%w: connection %v weights have %d dims, need 2", ErrPrecondition, pp.Syn.Name(), wt.NumDims())
		return
	}
	slen, rlen = wt.Dim(0), wt.Dim(1)
	nb = slay.Batch()
	if nb == 0 || rlay.Batch() != nb {
		err = fmt.Errorf("%w: connection %v batch sizes send: %d recv: %d", ErrPrecondition, pp.Syn.Name(), nb, rlay.Batch())
		return
	}
	if slay.NumNeurons() != slen || rlay.NumNeurons() != rlen {
		err = fmt.Errorf("%w: connection %v weights [%d, %d] for layers of %d, %d neurons", ErrPrecondition, pp.Syn.Name(), slen, rlen, slay.NumNeurons(), rlay.NumNeurons())
	}
	return
}

// outer fills buf with the per-batch outer products a[b,s] * c[b,t] and
// reduces them over the batch into dw.
func (pp *PostPre) outer(a, c []float32, nb, slen, rlen int) error {
	pp.buf.SetShape([]int{nb, slen, rlen}, nil, nil)
	bv := pp.buf.Values
	for b := 0; b < nb; b++ {
		av := a[b*slen : (b+1)*slen]
		cv := c[b*rlen : (b+1)*rlen]
		for si, s := range av {
			row := bv[(b*slen+si)*rlen : (b*slen+si+1)*rlen]
			for ri, r := range cv {
				row[ri] = s * r
			}
		}
	}
	return pp.reduceBatch(slen, rlen)
}

// reduceBatch reduces buf over the batch axis into dw, which must come
// out with one value per synapse.
func (pp *PostPre) reduceBatch(slen, rlen int) error {
	if err := pp.BatchReducer().Reduce(&pp.dw, &pp.buf, 0); err != nil {
		return err
	}
	if pp.dw.Len() != slen*rlen {
		return fmt.Errorf("%w: connection %v batch reduction gave %d values, need %d", ErrPrecondition, pp.Syn.Name(), pp.dw.Len(), slen*rlen)
	}
	return nil
}

// Hebbian applies the pre-synaptic (depression) and post-synaptic
// (potentiation) terms to the weights.
func (pp *PostPre) Hebbian() error {
	nb, slen, rlen, err := pp.dims()
	if err != nil {
		return err
	}
	slay := pp.Syn.SendLay()
	rlay := pp.Syn.RecvLay()
	wv := pp.Syn.Weights().Values
	mask := pp.Syn.Mask()
	if pp.Learn.NuPre != 0 {
		if err := pp.outer(slay.Spikes().Values, rlay.Trace().Values, nb, slen, rlen); err != nil {
			return err
		}
		for wi, d := range pp.dw.Values {
			if mask != nil && !mask[wi] {
				continue
			}
			wv[wi] -= pp.Learn.NuPre * d
		}
	}
	if pp.Learn.NuPost != 0 {
		if err := pp.outer(slay.Trace().Values, rlay.Spikes().Values, nb, slen, rlen); err != nil {
			return err
		}
		for wi, d := range pp.dw.Values {
			if mask != nil && !mask[wi] {
				continue
			}
			wv[wi] += pp.Learn.NuPost * d
		}
	}
	return nil
}

// DecayWts subtracts WtDecay times each weight
func (pp *PostPre) DecayWts() {
	if pp.Learn.WtDecay == 0 {
		return
	}
	wv := pp.Syn.Weights().Values
	for wi := range wv {
		wv[wi] -= pp.Learn.WtDecay * wv[wi]
	}
}

// ApplyParams applies given parameter style Sheet to this rule.
func (pp *PostPre) ApplyParams(pars *params.Sheet, setMsg bool) (bool, error) {
	app, err := pars.Apply(pp, setMsg)
	if err != nil {
		log.Printf("snn.PostPre %v ApplyParams: %v\n", pp.Name(), err)
	}
	return app, err
}
