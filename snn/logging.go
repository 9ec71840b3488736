// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"fmt"
	"io"

	"github.com/emer/etable/agg"
	"github.com/emer/etable/etable"
	"github.com/emer/etable/etensor"
)

// RunLog records per-step network statistics in an etable.Table:
// the step counter, the mean spike rate and homeostatic trace of each
// layer, and the mean weight of each connection.
type RunLog struct {
	Net   *Network      `view:"-" desc:"network being logged"`
	Table *etable.Table `desc:"one row per recorded step"`
}

// SpikesCol etc return the column names used for a layer or connection
func SpikesCol(ly *Layer) string { return ly.Nm + "_Spikes" }
func RateCol(ly *Layer) string   { return ly.Nm + "_Rate" }
func WtCol(cn *Conn) string      { return cn.Nm + "_Wt" }

// NewRunLog returns a new empty log with a column schema for given network.
func NewRunLog(nt *Network) *RunLog {
	sch := etable.Schema{
		{"Step", etensor.INT64, nil, nil},
		{"Time", etensor.FLOAT64, nil, nil},
	}
	for _, ly := range nt.Layers {
		sch = append(sch, etable.Column{Name: SpikesCol(ly), Type: etensor.FLOAT64})
		if ly.HasHomeo() {
			sch = append(sch, etable.Column{Name: RateCol(ly), Type: etensor.FLOAT64})
		}
	}
	for _, cn := range nt.Conns {
		sch = append(sch, etable.Column{Name: WtCol(cn), Type: etensor.FLOAT64})
	}
	return &RunLog{Net: nt, Table: etable.New(sch, 0)}
}

// meanVals returns the mean of given values
func meanVals(vals []float32) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := float64(0)
	for _, v := range vals {
		sum += float64(v)
	}
	return sum / float64(len(vals))
}

// Record adds a row with the current state of the network
func (rl *RunLog) Record() {
	nt := rl.Net
	dt := rl.Table
	row := dt.Rows
	dt.AddRows(1)
	dt.SetCellFloat("Step", row, float64(nt.Time.CycleTot))
	dt.SetCellFloat("Time", row, float64(nt.Time.Time))
	for _, ly := range nt.Layers {
		dt.SetCellFloat(SpikesCol(ly), row, meanVals(ly.Spikes().Values))
		if ly.HasHomeo() {
			dt.SetCellFloat(RateCol(ly), row, float64(ly.Homeo.Mean()))
		}
	}
	for _, cn := range nt.Conns {
		dt.SetCellFloat(WtCol(cn), row, float64(cn.MeanWt()))
	}
}

// Reset removes all recorded rows
func (rl *RunLog) Reset() {
	rl.Table.SetNumRows(0)
}

// Mean returns the mean over all recorded steps of given column
func (rl *RunLog) Mean(col string) (float64, error) {
	if rl.Table.ColIdx(col) < 0 {
		return 0, fmt.Errorf("%w: run log has no column %v", ErrConfig, col)
	}
	if rl.Table.Rows == 0 {
		return 0, nil
	}
	ix := etable.NewIdxView(rl.Table)
	return agg.Mean(ix, col)[0], nil
}

// Summary returns a one-line summary of the mean of every statistic column
func (rl *RunLog) Summary() string {
	s := fmt.Sprintf("%v: %d steps", rl.Net.Nm, rl.Table.Rows)
	for _, cn := range rl.Table.ColNames {
		if cn == "Step" || cn == "Time" {
			continue
		}
		m, _ := rl.Mean(cn)
		s += fmt.Sprintf("  %s: %.4g", cn, m)
	}
	return s
}

// WriteCSV writes the log as comma-separated values with a header row
func (rl *RunLog) WriteCSV(w io.Writer) error {
	return rl.Table.WriteCSV(w, etable.Comma, etable.Headers)
}
