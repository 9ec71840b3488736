// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"fmt"
	"log"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/emer/emergent/params"
	"github.com/emer/emergent/prjn"
	"github.com/emer/etable/etensor"
	"github.com/goki/ki/ints"
)

// snn.Network is a set of spiking layers, the connections among them and
// the learning rules on those connections.  Each Step runs all layers and
// then all learning rules, in the order they were added.
type Network struct {
	Nm       string            `desc:"overall name of network -- helps discriminate if there are multiple"`
	Layers   []*Layer          `desc:"list of layers, in the order they are stepped"`
	Conns    []*Conn           `desc:"list of connections"`
	Rules    []Rule            `desc:"learning rules, updated in order after all layers have stepped"`
	LayMap   map[string]*Layer `view:"-" desc:"map of name to layers -- layer names must be unique"`
	Time     Time              `desc:"timing state and step size"`
	Learn    bool              `def:"true" desc:"run the learning rules on each step"`
	MetaData map[string]string `desc:"misc metadata, saved with weights"`

	// synaptic input for each layer from the spikes of the previous step,
	// [batch, neurons], same order as Layers
	Inputs []etensor.Float32 `view:"-"`
}

// NewNetwork returns a new network with default timing and learning on
func NewNetwork(name string) *Network {
	nt := &Network{Nm: name, Learn: true}
	nt.Time.Defaults()
	nt.LayMap = make(map[string]*Layer)
	return nt
}

func (nt *Network) Name() string { return nt.Nm }

// AddLayer adds given layer to the network, returning it
func (nt *Network) AddLayer(ly *Layer) *Layer {
	if _, has := nt.LayMap[ly.Nm]; has {
		log.Printf("snn.Network %v AddLayer: layer named %v already exists -- replacing it in the map\n", nt.Nm, ly.Nm)
	}
	ly.Index = len(nt.Layers)
	nt.Layers = append(nt.Layers, ly)
	nt.LayMap[ly.Nm] = ly
	return ly
}

// AddLIFLayer adds a new LIF layer of given shape
func (nt *Network) AddLIFLayer(name string, shape []int, homeo bool) *Layer {
	return nt.AddLayer(NewLIFLayer(name, shape, homeo))
}

// AddInputLayer adds a new input layer of given shape
func (nt *Network) AddInputLayer(name string, shape []int, homeo bool) *Layer {
	return nt.AddLayer(NewInputLayer(name, shape, homeo))
}

// LayerByName returns layer of given name, nil if not found
func (nt *Network) LayerByName(name string) *Layer {
	return nt.LayMap[name]
}

// LayerByNameTry returns layer of given name, or an error if not found
func (nt *Network) LayerByNameTry(name string) (*Layer, error) {
	ly, ok := nt.LayMap[name]
	if !ok {
		return nil, fmt.Errorf("%w: layer named: %v not found in network: %v", ErrConfig, name, nt.Nm)
	}
	return ly, nil
}

// ConnByName returns the connection of given name, nil if not found
func (nt *Network) ConnByName(name string) *Conn {
	for _, cn := range nt.Conns {
		if cn.Nm == name {
			return cn
		}
	}
	return nil
}

// ConnectLayers establishes a connection between two layers, using given
// pattern of connectivity.
func (nt *Network) ConnectLayers(send, recv *Layer, pat prjn.Pattern) *Conn {
	cn := NewConn(send, recv, pat)
	nt.Conns = append(nt.Conns, cn)
	send.SendConns = append(send.SendConns, cn)
	recv.RecvConns = append(recv.RecvConns, cn)
	return cn
}

// AddRule adds a learning rule, updated after all layers on every step
func (nt *Network) AddRule(rl Rule) Rule {
	nt.Rules = append(nt.Rules, rl)
	return rl
}

// Build builds all connections and allocates all state for given batch
// size, computing the decays from Time.Dt.  Weights are initialized.
func (nt *Network) Build(batch int) error {
	for _, cn := range nt.Conns {
		if err := cn.Build(); err != nil {
			return err
		}
	}
	nt.SetBatchSize(batch)
	nt.ComputeDecays(nt.Time.Dt)
	nt.InitWts()
	return nil
}

// InitWts initializes all connection weights
func (nt *Network) InitWts() {
	for _, cn := range nt.Conns {
		cn.InitWts()
	}
}

// SetBatchSize reallocates the state of all layers for given batch size
func (nt *Network) SetBatchSize(batch int) {
	nt.Inputs = make([]etensor.Float32, len(nt.Layers))
	for li, ly := range nt.Layers {
		ly.SetBatchSize(batch)
		nt.Inputs[li].SetShape([]int{batch, ly.NumNeurons()}, nil, nil)
	}
}

// ComputeDecays sets the step size and recomputes all decays
func (nt *Network) ComputeDecays(dt float32) {
	nt.Time.Dt = dt
	for _, ly := range nt.Layers {
		ly.ComputeDecays(dt)
	}
}

// ResetState resets the state of all layers and pending synaptic inputs,
// as at the start of a new trial.  Weights are not affected.
func (nt *Network) ResetState() {
	for _, ly := range nt.Layers {
		ly.ResetState()
	}
	for li := range nt.Inputs {
		nt.Inputs[li].SetZeros()
	}
	nt.Time.TrialStart()
}

// Step runs one time step.  Each layer steps with its synaptic input from
// the previous step plus any external input given by layer name, then
// all rules update if Learn is on, and the synaptic inputs for the next
// step are computed from the new spikes.
func (nt *Network) Step(ext map[string]*etensor.Float32) error {
	if len(nt.Inputs) != len(nt.Layers) {
		return fmt.Errorf("%w: network %v stepped before Build", ErrPrecondition, nt.Nm)
	}
	for nm := range ext {
		if _, err := nt.LayerByNameTry(nm); err != nil {
			return err
		}
	}
	for li, ly := range nt.Layers {
		if ly.Off {
			continue
		}
		in := &nt.Inputs[li]
		if x, ok := ext[ly.Nm]; ok && x != nil {
			if x.Len() != in.Len() {
				return fmt.Errorf("%w: external input for %v has %d values, need %d", ErrPrecondition, ly.Nm, x.Len(), in.Len())
			}
			for i, v := range x.Values {
				in.Values[i] += v
			}
		}
		if err := ly.Step(in); err != nil {
			return err
		}
	}
	if nt.Learn {
		for _, rl := range nt.Rules {
			if rl.Conn().IsOff() {
				continue
			}
			if err := rl.Update(); err != nil {
				return err
			}
		}
		for _, cn := range nt.Conns {
			if !cn.IsOff() {
				cn.Normalize()
			}
		}
	}
	for li := range nt.Inputs {
		nt.Inputs[li].SetZeros()
	}
	for _, cn := range nt.Conns {
		if cn.IsOff() {
			continue
		}
		if err := cn.SendInput(&nt.Inputs[cn.Recv.Index]); err != nil {
			return err
		}
	}
	nt.Time.CycleInc()
	return nil
}

// ApplyParams applies given parameter style Sheet to layers, connections
// and rules in this network.  Calls UpdateParams on anything set to ensure
// derived parameters, including decays, are all updated.
// If setMsg is true, then a message is printed to confirm each parameter
// that is set.  It always prints a message if a parameter fails to be set.
// returns true if any params were set, and error if there were any errors.
func (nt *Network) ApplyParams(pars *params.Sheet, setMsg bool) (bool, error) {
	applied := false
	var rerr error
	for _, ly := range nt.Layers {
		app, err := ly.ApplyParams(pars, setMsg)
		if app {
			applied = true
		}
		if err != nil {
			rerr = err
		}
	}
	for _, cn := range nt.Conns {
		app, err := cn.ApplyParams(pars, setMsg)
		if app {
			applied = true
		}
		if err != nil {
			rerr = err
		}
	}
	for _, rl := range nt.Rules {
		app, err := rl.ApplyParams(pars, setMsg)
		if app {
			applied = true
		}
		if err != nil {
			rerr = err
		}
	}
	return applied, rerr
}

// stateLen returns the number of float32 state values held by a layer
func stateLen(ly *Layer) int {
	n := 0
	switch dyn := ly.Dyn.(type) {
	case *LIF:
		n = dyn.V.Len() + dyn.S.Len() + dyn.Refrac.Len() + dyn.X.Vals.Len()
	default:
		n = ly.Spikes().Len() + ly.Trace().Len()
	}
	if ly.Homeo != nil {
		n += ly.Homeo.Vals.Len()
	}
	return n
}

// SizeReport returns a string reporting the size of each layer and connection
// in the network, and total memory footprint.
func (nt *Network) SizeReport() string {
	var b strings.Builder
	neur := 0
	neurMem := 0
	syn := 0
	synMem := 0
	for _, ly := range nt.Layers {
		nn := ly.NumNeurons()
		nmem := 4 * stateLen(ly)
		neur += nn
		neurMem += nmem
		fmt.Fprintf(&b, "%14s:\t Neurons: %d\t Batch: %d\t NeurMem: %v \t Sends To:\n", ly.Nm, nn, ints.MaxInt(ly.Batch(), 0), datasize.ByteSize(nmem).HumanReadable())
		for _, cn := range ly.SendConns {
			ns := cn.NSyns
			syn += ns
			pmem := 4*cn.W.Len() + len(cn.Cons)
			synMem += pmem
			fmt.Fprintf(&b, "\t%14s:\t Syns: %d\t SynMem: %v\n", cn.Recv.Nm, ns, datasize.ByteSize(pmem).HumanReadable())
		}
	}
	fmt.Fprintf(&b, "\n\n%14s:\t Neurons: %d\t NeurMem: %v \t Syns: %d \t SynMem: %v\n", nt.Nm, neur, datasize.ByteSize(neurMem).HumanReadable(), syn, datasize.ByteSize(synMem).HumanReadable())
	return b.String()
}
