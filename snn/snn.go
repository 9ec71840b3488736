// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package snn implements spiking layers with a homeostatic firing-rate trace
and the homeostatic STDP learning rule that uses it to keep synaptic
weights from drifting unboundedly.

A Layer holds a base Dynamics engine (LIF or Input) that computes voltages
and spikes, and optionally a long time-constant trace.Integ that tracks
each neuron's recent firing rate (R).  A Conn holds the [send, recv]
weight matrix between two layers.  PostPre is the standard pair-based
STDP rule, and HomeoSTDP first scales every incoming weight of a
receiving neuron down in proportion to that neuron's own rate:

	dW[s,t] = -Gamma * reduce_b(R_post[b,t] * W[s,t])

and then applies the PostPre Hebbian terms, weight decay and bounds.

A Network steps all layers and then all learning rules on each time step.
*/
package snn

import "errors"

var (
	// ErrConfig is a configuration error detected at construction time,
	// for example an unsupported connection topology or a rule that
	// requires homeostatic traces on a layer that does not record them.
	ErrConfig = errors.New("snn: configuration error")

	// ErrPrecondition is a violated precondition, such as stepping a layer
	// before its batch size and decays have been set, or mismatched shapes
	// between traces and weights.
	ErrPrecondition = errors.New("snn: precondition violation")
)
