// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package homeostdp is the overall repository for homeostatic spike-timing
dependent plasticity (STDP) in spiking neural networks, implemented in Go.

This top-level of the repository has no functional code -- everything is organized
into the following sub-repositories:

* trace: the leaky spike-trace integrator, used both for the short STDP traces
and for the long time-constant homeostatic firing-rate trace.

* snn: spiking layers (LIF and Input dynamics) that optionally record a
homeostatic trace, the connections between them, the PostPre STDP rule and
the HomeoSTDP rule that scales down the incoming weights of neurons in
proportion to their own recent firing rate, plus a network that steps it
all, weights files and a per-step run log.

* runstore: saves run logs into a SQLite database for comparing runs.

* examples: these actually compile into runnable programs.  examples/homeo
runs a Poisson input layer into a LIF layer learning with HomeoSTDP.
*/
package homeostdp
