// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

// snn.Time contains all the timing state and parameter information for running a network
type Time struct {
	Time     float32 `desc:"accumulated amount of simulated time the network has been running, in the units of Dt (msec)"`
	Cycle    int     `desc:"step counter within the current trial -- reset by TrialStart"`
	CycleTot int     `desc:"total step count -- increments continuously from whenever it was last reset"`
	Dt       float32 `def:"1" min:"0" desc:"amount of time to increment per step -- all decays are computed from this"`
}

// NewTime returns a new Time struct with default parameters
func NewTime() *Time {
	tm := &Time{}
	tm.Defaults()
	return tm
}

// Defaults sets default values
func (tm *Time) Defaults() {
	tm.Dt = 1
}

// Reset resets the counters all back to zero
func (tm *Time) Reset() {
	tm.Time = 0
	tm.Cycle = 0
	tm.CycleTot = 0
	if tm.Dt == 0 {
		tm.Defaults()
	}
}

// TrialStart starts a new trial, resetting the within-trial counter
func (tm *Time) TrialStart() {
	tm.Cycle = 0
}

// CycleInc increments at the step level
func (tm *Time) CycleInc() {
	tm.Cycle++
	tm.CycleTot++
	tm.Time += tm.Dt
}
