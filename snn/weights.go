// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"fmt"
	"io"
	"log"
	"strconv"

	"github.com/emer/emergent/weights"
	"github.com/goki/ki/indent"
)

// WriteWtsJSON writes the weights from this connection from the receiver-side perspective
// in a JSON text format.  We build in the indentation logic to make it much faster and
// more efficient.
func (cn *Conn) WriteWtsJSON(w io.Writer, depth int) {
	slen := cn.W.Dim(0)
	rlen := cn.W.Dim(1)
	w.Write(indent.TabBytes(depth))
	w.Write([]byte("{\n"))
	depth++
	w.Write(indent.TabBytes(depth))
	w.Write([]byte(fmt.Sprintf("\"From\": %q,\n", cn.Send.Nm)))
	w.Write(indent.TabBytes(depth))
	w.Write([]byte("\"MetaData\": {\n"))
	depth++
	w.Write(indent.TabBytes(depth))
	w.Write([]byte(fmt.Sprintf("\"Norm\": \"%g\"\n", cn.Norm)))
	depth--
	w.Write(indent.TabBytes(depth))
	w.Write([]byte("},\n"))
	w.Write(indent.TabBytes(depth))
	w.Write([]byte("\"Rs\": [\n"))
	depth++
	sis := make([]int, 0, slen)
	for ri := 0; ri < rlen; ri++ {
		sis = sis[:0]
		for si := 0; si < slen; si++ {
			if cn.HasSyn(si*rlen + ri) {
				sis = append(sis, si)
			}
		}
		nc := len(sis)
		w.Write(indent.TabBytes(depth))
		w.Write([]byte("{\n"))
		depth++
		w.Write(indent.TabBytes(depth))
		w.Write([]byte(fmt.Sprintf("\"Ri\": %v,\n", ri)))
		w.Write(indent.TabBytes(depth))
		w.Write([]byte(fmt.Sprintf("\"N\": %v,\n", nc)))
		w.Write(indent.TabBytes(depth))
		w.Write([]byte("\"Si\": [ "))
		for ci, si := range sis {
			w.Write([]byte(strconv.Itoa(si)))
			if ci == nc-1 {
				w.Write([]byte(" "))
			} else {
				w.Write([]byte(", "))
			}
		}
		w.Write([]byte("],\n"))
		w.Write(indent.TabBytes(depth))
		w.Write([]byte("\"Wt\": [ "))
		for ci, si := range sis {
			wt := cn.W.Values[si*rlen+ri]
			w.Write([]byte(strconv.FormatFloat(float64(wt), 'g', weights.Prec, 32)))
			if ci == nc-1 {
				w.Write([]byte(" "))
			} else {
				w.Write([]byte(", "))
			}
		}
		w.Write([]byte("]\n"))
		depth--
		w.Write(indent.TabBytes(depth))
		if ri == rlen-1 {
			w.Write([]byte("}\n"))
		} else {
			w.Write([]byte("},\n"))
		}
	}
	depth--
	w.Write(indent.TabBytes(depth))
	w.Write([]byte("]\n"))
	depth--
	w.Write(indent.TabBytes(depth))
	w.Write([]byte("}")) // note: leave unterminated as outer loop needs to add , or just \n depending
}

// ReadWtsJSON reads the weights from this connection from the receiver-side perspective
// in a JSON text format.  This is for a set of weights that were saved *for one connection only*
// and is not used for the network-level ReadWtsJSON -- see SetWts method.
func (cn *Conn) ReadWtsJSON(r io.Reader) error {
	pw, err := weights.PrjnReadJSON(r)
	if err != nil {
		return err // note: already logged
	}
	return cn.SetWts(pw)
}

// SetWts sets the weights for this connection from weights.Prjn decoded values
func (cn *Conn) SetWts(pw *weights.Prjn) error {
	if pw.MetaData != nil {
		if nm, ok := pw.MetaData["Norm"]; ok {
			pv, _ := strconv.ParseFloat(nm, 32)
			cn.Norm = float32(pv)
		}
	}
	var err error
	for i := range pw.Rs {
		pr := &pw.Rs[i]
		for si := range pr.Si {
			if si >= len(pr.Wt) {
				break
			}
			er := cn.SetSynVal(pr.Si[si], pr.Ri, pr.Wt[si])
			if er != nil {
				err = er
			}
		}
	}
	return err
}

// WriteWtsJSON writes the weights of all connections received by this layer,
// along with the homeostatic time constant, in a JSON text format.
func (ly *Layer) WriteWtsJSON(w io.Writer, depth int) {
	w.Write(indent.TabBytes(depth))
	w.Write([]byte("{\n"))
	depth++
	w.Write(indent.TabBytes(depth))
	w.Write([]byte(fmt.Sprintf("\"Layer\": %q,\n", ly.Nm)))
	w.Write(indent.TabBytes(depth))
	if ly.Homeo != nil {
		w.Write([]byte("\"MetaData\": {\n"))
		depth++
		w.Write(indent.TabBytes(depth))
		w.Write([]byte(fmt.Sprintf("\"HomeoTau\": \"%g\"\n", ly.Homeo.Tau)))
		depth--
		w.Write(indent.TabBytes(depth))
		w.Write([]byte("},\n"))
	} else {
		w.Write([]byte("\"MetaData\": null,\n"))
	}
	w.Write(indent.TabBytes(depth))
	oncs := make([]*Conn, 0, len(ly.RecvConns))
	for _, cn := range ly.RecvConns {
		if !cn.Off {
			oncs = append(oncs, cn)
		}
	}
	nc := len(oncs)
	if nc == 0 {
		w.Write([]byte("\"Prjns\": null\n"))
	} else {
		w.Write([]byte("\"Prjns\": [\n"))
		depth++
		for ci, cn := range oncs {
			cn.WriteWtsJSON(w, depth) // this leaves conn unterminated
			if ci == nc-1 {
				w.Write([]byte("\n"))
			} else {
				w.Write([]byte(",\n"))
			}
		}
		depth--
		w.Write(indent.TabBytes(depth))
		w.Write([]byte("]\n"))
	}
	depth--
	w.Write(indent.TabBytes(depth))
	w.Write([]byte("}")) // note: leave unterminated as outer loop needs to add , or just \n depending
}

// RecvConnFrom returns the receiving connection from given sending layer name,
// or an error if not found
func (ly *Layer) RecvConnFrom(send string) (*Conn, error) {
	for _, cn := range ly.RecvConns {
		if cn.Send.Nm == send {
			return cn, nil
		}
	}
	return nil, fmt.Errorf("%w: layer %v has no connection from: %v", ErrConfig, ly.Nm, send)
}

// SetWts sets the weights for this layer from weights.Layer decoded values
func (ly *Layer) SetWts(lw *weights.Layer) error {
	if ly.Off {
		return nil
	}
	if lw.MetaData != nil && ly.Homeo != nil {
		if tau, ok := lw.MetaData["HomeoTau"]; ok {
			pv, _ := strconv.ParseFloat(tau, 32)
			if err := ly.Homeo.SetTau(float32(pv)); err != nil {
				return fmt.Errorf("%w: layer %v HomeoTau: %w", ErrConfig, ly.Nm, err)
			}
		}
	}
	var err error
	if len(lw.Prjns) == len(ly.RecvConns) { // this is essential if multiple conns from same layer
		for pi := range lw.Prjns {
			if er := ly.RecvConns[pi].SetWts(&lw.Prjns[pi]); er != nil {
				err = er
			}
		}
		return err
	}
	for pi := range lw.Prjns {
		pw := &lw.Prjns[pi]
		cn, er := ly.RecvConnFrom(pw.From)
		if er != nil {
			err = er
			continue
		}
		if er := cn.SetWts(pw); er != nil {
			err = er
		}
	}
	return err
}

// WriteWtsJSON writes the weights from this network from the receiver-side perspective
// in a JSON text format.  We build in the indentation logic to make it much faster and
// more efficient.
func (nt *Network) WriteWtsJSON(w io.Writer) {
	depth := 0
	w.Write(indent.TabBytes(depth))
	w.Write([]byte("{\n"))
	depth++
	w.Write(indent.TabBytes(depth))
	w.Write([]byte(fmt.Sprintf("\"Network\": %q,\n", nt.Nm))) // note: can't use \n in `` so need "
	w.Write(indent.TabBytes(depth))
	onls := make([]*Layer, 0, len(nt.Layers))
	for _, ly := range nt.Layers {
		if !ly.Off {
			onls = append(onls, ly)
		}
	}
	nl := len(onls)
	if nl == 0 {
		w.Write([]byte("\"Layers\": null\n"))
	} else {
		w.Write([]byte("\"Layers\": [\n"))
		depth++
		for li, ly := range onls {
			ly.WriteWtsJSON(w, depth)
			if li == nl-1 {
				w.Write([]byte("\n"))
			} else {
				w.Write([]byte(",\n"))
			}
		}
		depth--
		w.Write(indent.TabBytes(depth))
		w.Write([]byte("]\n"))
	}
	depth--
	w.Write(indent.TabBytes(depth))
	w.Write([]byte("}\n"))
}

// ReadWtsJSON reads network weights from the receiver-side perspective
// in a JSON text format.  Reads entire file into a temporary weights.Network
// structure that is then passed to Layers etc using SetWts method.
func (nt *Network) ReadWtsJSON(r io.Reader) error {
	nw, err := weights.NetReadJSON(r)
	if err != nil {
		return err // note: already logged
	}
	err = nt.SetWts(nw)
	if err != nil {
		log.Println(err)
	}
	return err
}

// SetWts sets the weights for this network from weights.Network decoded values
func (nt *Network) SetWts(nw *weights.Network) error {
	var err error
	if nw.Network != "" {
		nt.Nm = nw.Network
	}
	if nw.MetaData != nil {
		if nt.MetaData == nil {
			nt.MetaData = nw.MetaData
		} else {
			for mk, mv := range nw.MetaData {
				nt.MetaData[mk] = mv
			}
		}
	}
	for li := range nw.Layers {
		lw := &nw.Layers[li]
		ly, er := nt.LayerByNameTry(lw.Layer)
		if er != nil {
			err = er
			continue
		}
		if er := ly.SetWts(lw); er != nil {
			err = er
		}
	}
	return err
}
