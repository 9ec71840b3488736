// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runstore

import (
	"context"
	"errors"
	"testing"

	"github.com/emer/etable/etable"
	"github.com/emer/etable/etensor"
)

func testTable() *etable.Table {
	dt := etable.New(etable.Schema{
		{"Step", etensor.INT64, nil, nil},
		{"Out_Spikes", etensor.FLOAT64, nil, nil},
		{"InToOut_Wt", etensor.FLOAT64, nil, nil},
	}, 4)
	for row := 0; row < 4; row++ {
		dt.SetCellFloat("Step", row, float64(row+1))
		dt.SetCellFloat("Out_Spikes", row, float64(row%2))
		dt.SetCellFloat("InToOut_Wt", row, 0.5-0.1*float64(row))
	}
	return dt
}

func TestSaveLoadRun(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	id, err := st.SaveRun(ctx, "run0", "Homeo", testTable())
	if err != nil {
		t.Fatal(err)
	}
	runs, err := st.Runs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != id || runs[0].Name != "run0" || runs[0].Network != "Homeo" || runs[0].Rows != 4 {
		t.Errorf("runs: %+v", runs)
	}

	dt, err := st.LoadRun(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if dt.Rows != 4 {
		t.Fatalf("rows: %d", dt.Rows)
	}
	want := []string{"Step", "Out_Spikes", "InToOut_Wt"}
	for i, nm := range want {
		if dt.ColNames[i] != nm {
			t.Errorf("col %d: got %v want %v", i, dt.ColNames[i], nm)
		}
	}
	if v := dt.CellFloat("InToOut_Wt", 3); v < 0.2-1e-9 || v > 0.2+1e-9 {
		t.Errorf("InToOut_Wt[3]: %v", v)
	}

	means, err := st.Means(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if means["Out_Spikes"] != 0.5 {
		t.Errorf("Out_Spikes mean: %v", means["Out_Spikes"])
	}
	if means["Step"] != 2.5 {
		t.Errorf("Step mean: %v", means["Step"])
	}
}

func TestNoRun(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if _, err := st.LoadRun(ctx, 42); !errors.Is(err, ErrNoRun) {
		t.Errorf("LoadRun: expected ErrNoRun, got %v", err)
	}
	if _, err := st.Means(ctx, 42); !errors.Is(err, ErrNoRun) {
		t.Errorf("Means: expected ErrNoRun, got %v", err)
	}
}
