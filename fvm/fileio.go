// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fvm

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"encoding/json"
	goio "io"
	"os"
	"path/filepath"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"gopkg.in/yaml.v3"
)

// Encoder defines encoders; e.g. gob, json or yaml
type Encoder interface {
	Encode(e interface{}) error
}

// Decoder defines decoders; e.g. gob, json or yaml
type Decoder interface {
	Decode(e interface{}) error
}

// GetEncoder returns a new encoder
func GetEncoder(w goio.Writer, enctype string) Encoder {
	switch enctype {
	case "json":
		return json.NewEncoder(w)
	case "yaml":
		return yamlEncoder{w}
	}
	return gob.NewEncoder(w)
}

// GetDecoder returns a new decoder
func GetDecoder(r goio.Reader, enctype string) Decoder {
	switch enctype {
	case "json":
		return json.NewDecoder(r)
	case "yaml":
		return yaml.NewDecoder(r)
	}
	return gob.NewDecoder(r)
}

// yamlEncoder writes each value as a complete document
type yamlEncoder struct {
	w goio.Writer
}

func (o yamlEncoder) Encode(e interface{}) error {
	b, err := yaml.Marshal(e)
	if err != nil {
		return err
	}
	_, err = o.w.Write(b)
	return err
}

// DofFields holds fields with one value per grid dof at one output time
type DofFields struct {
	T      float64              `json:"t" yaml:"t"`           // time
	Names  []string             `json:"names" yaml:"names"`   // field names in attaching order
	Values map[string][]float64 `json:"values" yaml:"values"` // field values
}

// AttachDofField stores a copy of values
func (o *DofFields) AttachDofField(name string, values []float64) {
	if o.Values == nil {
		o.Values = make(map[string][]float64)
	}
	if _, ok := o.Values[name]; !ok {
		o.Names = append(o.Names, name)
	}
	v := make([]float64, len(values))
	copy(v, values)
	o.Values[name] = v
}

// Get returns the values of field name or nil
func (o *DofFields) Get(name string) []float64 { return o.Values[name] }

// SaveFields collects the fields of all output modules and saves them to a file which name is
// set with tidx (time output index)
func (o *FVM) SaveFields(tidx int) (err error) {
	err = o.Disc.PrepareOutputFields()
	if err != nil {
		return
	}
	flds := &DofFields{T: o.Disc.Time() + o.Disc.Dt()}
	o.Disc.AppendOutputFields(flds)

	// only root saves since all processes hold the same solution
	if o.Proc != 0 {
		return
	}
	var buf bytes.Buffer
	enc := GetEncoder(&buf, o.Sim.EncType)
	err = enc.Encode(flds)
	if err != nil {
		return chk.Err("cannot encode fields\n%v", err)
	}
	return save_file(out_fld_path(o.Sim.DirOut, o.Sim.Key, o.Sim.EncType, tidx), &buf, o.Verbose)
}

// SaveConvergence saves the convergence fields of Newton iteration iter of the time step
// leading to output tidx (time output index)
func (o *FVM) SaveConvergence(iter int, flds *DofFields) (err error) {
	if o.Proc != 0 {
		return
	}
	var buf bytes.Buffer
	err = GetEncoder(&buf, o.Sim.EncType).Encode(flds)
	if err != nil {
		return chk.Err("cannot encode convergence fields\n%v", err)
	}
	return save_file(out_cnv_path(o.Sim.DirOut, o.Sim.Key, o.Sim.EncType, o.tidx, iter), &buf, false)
}

// ReadFields reads the fields saved with tidx (time output index)
func ReadFields(dir, fnkey, enctype string, tidx int) (flds *DofFields, err error) {
	return read_fields(out_fld_path(dir, fnkey, enctype, tidx), enctype)
}

// ReadConvergence reads the convergence fields saved with tidx and iter. Iterations of rejected
// time steps are overwritten by the retries
func ReadConvergence(dir, fnkey, enctype string, tidx, iter int) (flds *DofFields, err error) {
	return read_fields(out_cnv_path(dir, fnkey, enctype, tidx, iter), enctype)
}

func read_fields(fn, enctype string) (flds *DofFields, err error) {
	fil, err := os.Open(fn)
	if err != nil {
		return nil, chk.Err("cannot open fields file:\n%v", err)
	}
	defer fil.Close()
	flds = new(DofFields)
	err = GetDecoder(fil, enctype).Decode(flds)
	if err != nil {
		return nil, chk.Err("cannot decode fields from <%s>\n%v", fn, err)
	}
	return
}

// SaveRestart writes the current iterate of this process as text to a file which name is set
// with tidx (time output index)
func (o *FVM) SaveRestart(tidx int) (err error) {
	var buf bytes.Buffer
	err = o.Disc.Serialize(&buf)
	if err != nil {
		return
	}
	return save_file(out_rst_path(o.Sim.DirOut, o.Sim.Key, tidx, o.Proc), &buf, o.Verbose)
}

// ReadRestart reads the solution of this process written by SaveRestart. The time is set to
// the output time tidx recorded in the summary
func (o *FVM) ReadRestart(dir, fnkey string, tidx int) (err error) {
	fn := out_rst_path(dir, fnkey, tidx, o.Proc)
	fil, err := os.Open(fn)
	if err != nil {
		return chk.Err("cannot open restart file:\n%v", err)
	}
	defer fil.Close()
	err = o.Disc.Deserialize(bufio.NewReader(fil))
	if err != nil {
		return chk.Err("cannot read restart file <%s>:\n%v", fn, err)
	}
	if o.Summary != nil && tidx < len(o.Summary.OutTimes) {
		o.Disc.SetTime(o.Summary.OutTimes[tidx], 0)
	}
	return
}

// auxiliary ///////////////////////////////////////////////////////////////////////////////////////

func out_fld_path(dir, fnkey, enctype string, tidx int) string {
	return filepath.Join(dir, io.Sf("%s_fld_%010d.%s", fnkey, tidx, enctype))
}

func out_cnv_path(dir, fnkey, enctype string, tidx, iter int) string {
	return filepath.Join(dir, io.Sf("%s_cnv_%010d_%03d.%s", fnkey, tidx, iter, enctype))
}

func out_rst_path(dir, fnkey string, tidx, proc int) string {
	return filepath.Join(dir, io.Sf("%s_p%d_rst_%010d.txt", fnkey, proc, tidx))
}

func save_file(filename string, buf *bytes.Buffer, verbose bool) (err error) {
	fil, err := os.Create(filename)
	if err != nil {
		return
	}
	defer func() {
		if e := fil.Close(); err == nil {
			err = e
		}
	}()
	_, err = fil.Write(buf.Bytes())
	if verbose {
		io.Pfblue2("file <%s> written\n", filename)
	}
	return
}
