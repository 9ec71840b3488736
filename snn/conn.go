// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"errors"
	"fmt"
	"log"

	"github.com/chewxy/math32"
	"github.com/emer/emergent/erand"
	"github.com/emer/emergent/params"
	"github.com/emer/emergent/prjn"
	"github.com/emer/etable/etensor"
	"github.com/emer/etable/minmax"
	"github.com/goki/ki/kit"
)

// ConnTypes are the connection topologies between two layers
type ConnTypes int32

//go:generate stringer -type=ConnTypes

var KiT_ConnTypes = kit.Enums.AddEnum(ConnTypesN, kit.NotBitFlag, nil)

func (ev ConnTypes) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *ConnTypes) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

// The connection topologies
const (
	// DenseConn connects every sending neuron to every receiving neuron
	DenseConn ConnTypes = iota

	// LocalConn is a structured sparse connection: the weights keep the
	// dense [send, recv] layout with a mask of existing synapses
	LocalConn

	// ConvConn is a shared-kernel convolution -- not built by Conn, and
	// not supported by the learning rules in this package
	ConvConn

	// PoolConn is a pooling connection without learnable weights
	PoolConn

	ConnTypesN
)

// Synapses is the view of a connection used by learning rules:
// a [send, recv] weight matrix between two layers.
type Synapses interface {
	// Name returns the name of the connection
	Name() string

	// ConnType returns the topology
	ConnType() ConnTypes

	// SendLay returns the sending (pre-synaptic) layer
	SendLay() *Layer

	// RecvLay returns the receiving (post-synaptic) layer
	RecvLay() *Layer

	// Weights returns the weight matrix, [send neurons, recv neurons]
	Weights() *etensor.Float32

	// Mask returns which synapses exist, in the same order as Weights,
	// or nil if all of them do
	Mask() []bool

	// Bounds returns the allowed weight range
	Bounds() minmax.F32

	// IsOff returns true if the connection or either of its layers is off
	IsOff() bool
}

// Conn is a weighted connection between two layers, holding the shared
// weight matrix that learning rules update.
type Conn struct {
	Nm      string          `desc:"name of connection, typically From + To"`
	Cls     string          `desc:"class for applying parameter styles, can be space separated multple tags"`
	Off     bool            `desc:"inactivate this connection -- it sends no input and does not learn"`
	Send    *Layer          `desc:"sending (pre-synaptic) layer"`
	Recv    *Layer          `desc:"receiving (post-synaptic) layer"`
	Pat     prjn.Pattern    `view:"-" desc:"pattern of connectivity -- prjn.Full gives a DenseConn, anything else a LocalConn"`
	Typ     ConnTypes       `inactive:"+" desc:"topology, set from Pat"`
	WtInit  erand.RndParams `view:"inline" desc:"initial random weight distribution"`
	WtRange minmax.F32      `view:"inline" desc:"allowed range of weights, enforced after initialization and learning -- unbounded by default"`
	Norm    float32         `min:"0" desc:"if > 0, the incoming weights of each receiving neuron are rescaled after learning so their absolute values sum to Norm"`

	W     etensor.Float32 `view:"-" desc:"weights, [send neurons, recv neurons]"`
	Cons  []bool          `view:"-" desc:"which synapses exist, same order as W -- nil if all do"`
	NSyns int             `inactive:"+" desc:"number of existing synapses"`
}

// NewConn returns a new connection from send to recv with given pattern.
func NewConn(send, recv *Layer, pat prjn.Pattern) *Conn {
	cn := &Conn{Send: send, Recv: recv, Pat: pat}
	cn.Nm = send.Nm + "To" + recv.Nm
	cn.Defaults()
	return cn
}

func (cn *Conn) Defaults() {
	cn.WtInit.Mean = 0.3
	cn.WtInit.Var = 0.2
	cn.WtInit.Dist = erand.Uniform
	cn.WtRange.Set(math32.Inf(-1), math32.Inf(1))
	cn.Norm = 0
	cn.Typ = LocalConn
	if _, ok := cn.Pat.(*prjn.Full); ok {
		cn.Typ = DenseConn
	}
}

// Params styler interface
func (cn *Conn) TypeName() string { return "Conn" }
func (cn *Conn) Name() string     { return cn.Nm }
func (cn *Conn) Class() string    { return cn.Cls }

// Synapses interface
func (cn *Conn) ConnType() ConnTypes       { return cn.Typ }
func (cn *Conn) SendLay() *Layer           { return cn.Send }
func (cn *Conn) RecvLay() *Layer           { return cn.Recv }
func (cn *Conn) Weights() *etensor.Float32 { return &cn.W }
func (cn *Conn) Mask() []bool              { return cn.Cons }
func (cn *Conn) Bounds() minmax.F32        { return cn.WtRange }
func (cn *Conn) String() string            { return cn.Nm }
func (cn *Conn) IsOff() bool               { return cn.Off || cn.Send.Off || cn.Recv.Off }

// Validate tests for non-nil settings for the connection -- returns error
// message or nil if no problems (and logs them if logmsg = true)
func (cn *Conn) Validate(logmsg bool) error {
	emsg := ""
	if cn.Pat == nil {
		emsg += "Pat is nil; "
	}
	if cn.Recv == nil {
		emsg += "Recv is nil; "
	}
	if cn.Send == nil {
		emsg += "Send is nil; "
	}
	if emsg != "" {
		err := errors.New(emsg)
		if logmsg {
			log.Println(emsg)
		}
		return fmt.Errorf("%w: conn %v: %w", ErrConfig, cn.Nm, err)
	}
	return nil
}

// Build allocates the weights and the synapse mask from Pat.
func (cn *Conn) Build() error {
	if err := cn.Validate(true); err != nil {
		return err
	}
	if cn.Typ != DenseConn && cn.Typ != LocalConn {
		return fmt.Errorf("%w: conn %v: topology %v cannot be built by Conn", ErrConfig, cn.Nm, cn.Typ)
	}
	var ssh, rsh etensor.Shape
	ssh.SetShape(cn.Send.Shape(), nil, nil)
	rsh.SetShape(cn.Recv.Shape(), nil, nil)
	_, _, cons := cn.Pat.Connect(&ssh, &rsh, cn.Send == cn.Recv)
	slen := ssh.Len()
	rlen := rsh.Len()
	cn.W.SetShape([]int{slen, rlen}, nil, []string{"Send", "Recv"})
	cn.W.SetZeros()

	cn.Cons = make([]bool, slen*rlen)
	cn.NSyns = 0
	cbits := cons.Values
	for ri := 0; ri < rlen; ri++ {
		rbi := ri * slen // recv bit index
		for si := 0; si < slen; si++ {
			if !cbits.Index(rbi + si) {
				continue
			}
			cn.Cons[si*rlen+ri] = true
			cn.NSyns++
		}
	}
	if cn.NSyns == slen*rlen {
		cn.Cons = nil
	}
	return nil
}

// HasSyn returns true if the synapse at flat weight index wi exists
func (cn *Conn) HasSyn(wi int) bool {
	return cn.Cons == nil || cn.Cons[wi]
}

// InitWts initializes weight values according to WtInit, within WtRange.
func (cn *Conn) InitWts() {
	for wi := range cn.W.Values {
		if !cn.HasSyn(wi) {
			cn.W.Values[wi] = 0
			continue
		}
		cn.W.Values[wi] = cn.WtRange.ClipVal(float32(cn.WtInit.Gen(-1)))
	}
	cn.Normalize()
}

// SetWtsFunc sets the weights using given function of send and recv
// neuron indexes (flat).  Non-existent synapses are skipped.
func (cn *Conn) SetWtsFunc(wtFun func(si, ri int) float32) {
	rlen := cn.W.Dim(1)
	for wi := range cn.W.Values {
		if !cn.HasSyn(wi) {
			continue
		}
		cn.W.Values[wi] = wtFun(wi/rlen, wi%rlen)
	}
}

// ClipWts enforces WtRange on all existing synapses
func (cn *Conn) ClipWts() {
	ClipWts(cn.W.Values, cn.Cons, cn.WtRange)
}

// ClipWts clips the weights to the given range, skipping masked-out synapses
func ClipWts(wts []float32, mask []bool, rng minmax.F32) {
	for wi, w := range wts {
		if mask != nil && !mask[wi] {
			continue
		}
		wts[wi] = rng.ClipVal(w)
	}
}

// Normalize rescales the incoming weights of each receiving neuron so that
// their absolute values sum to Norm.  No-op if Norm is 0.
func (cn *Conn) Normalize() {
	if cn.Norm <= 0 {
		return
	}
	slen := cn.W.Dim(0)
	rlen := cn.W.Dim(1)
	wv := cn.W.Values
	for ri := 0; ri < rlen; ri++ {
		sum := float32(0)
		for si := 0; si < slen; si++ {
			sum += math32.Abs(wv[si*rlen+ri])
		}
		if sum == 0 {
			continue
		}
		sc := cn.Norm / sum
		for si := 0; si < slen; si++ {
			wv[si*rlen+ri] *= sc
		}
	}
}

// SendInput adds the synaptic input s @ W from the current sending spikes
// into out, which is [batch, recv neurons].
func (cn *Conn) SendInput(out *etensor.Float32) error {
	spk := cn.Send.Spikes()
	slen := cn.W.Dim(0)
	rlen := cn.W.Dim(1)
	nb := cn.Send.Batch()
	if spk.Len() != nb*slen || out.Len() != nb*rlen {
		return fmt.Errorf("%w: conn %v: spikes %d, input %d for weights [%d, %d] at batch %d", ErrPrecondition, cn.Nm, spk.Len(), out.Len(), slen, rlen, nb)
	}
	wv := cn.W.Values
	for b := 0; b < nb; b++ {
		sv := spk.Values[b*slen : (b+1)*slen]
		ov := out.Values[b*rlen : (b+1)*rlen]
		for si, s := range sv {
			if s == 0 {
				continue
			}
			ws := wv[si*rlen : (si+1)*rlen]
			for ri, w := range ws {
				ov[ri] += s * w
			}
		}
	}
	return nil
}

// SynVal returns the weight between given send, recv neuron indexes (flat).
// Returns NaN if there is no such synapse.
func (cn *Conn) SynVal(si, ri int) float32 {
	slen := cn.W.Dim(0)
	rlen := cn.W.Dim(1)
	if si < 0 || si >= slen || ri < 0 || ri >= rlen {
		return math32.NaN()
	}
	wi := si*rlen + ri
	if !cn.HasSyn(wi) {
		return math32.NaN()
	}
	return cn.W.Values[wi]
}

// SetSynVal sets the weight between given send, recv neuron indexes (flat).
// Returns error for access errors.
func (cn *Conn) SetSynVal(si, ri int, val float32) error {
	slen := cn.W.Dim(0)
	rlen := cn.W.Dim(1)
	if ri < 0 || ri >= rlen {
		return fmt.Errorf("Conn.SetSynVal: recv unit index %v is > size of recv layer: %v", ri, rlen)
	}
	if si < 0 || si >= slen {
		return fmt.Errorf("Conn.SetSynVal: send unit index %v is > size of send layer: %v", si, slen)
	}
	wi := si*rlen + ri
	if !cn.HasSyn(wi) {
		return fmt.Errorf("Conn.SetSynVal: recv unit index %v does not recv from send unit index %v", ri, si)
	}
	cn.W.Values[wi] = val
	return nil
}

// MeanWt returns the mean weight over existing synapses
func (cn *Conn) MeanWt() float32 {
	if cn.NSyns == 0 {
		return 0
	}
	sum := float32(0)
	for wi, w := range cn.W.Values {
		if cn.HasSyn(wi) {
			sum += w
		}
	}
	return sum / float32(cn.NSyns)
}

// ApplyParams applies given parameter style Sheet to this connection.
// Returns true if any params were set, and error if there were any errors.
func (cn *Conn) ApplyParams(pars *params.Sheet, setMsg bool) (bool, error) {
	app, err := pars.Apply(cn, setMsg)
	if err != nil {
		log.Printf("snn.Conn %v ApplyParams: %v\n", cn.Nm, err)
	}
	return app, err
}
