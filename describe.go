// Copyright 2016 The Sandpass Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"zombiezen.com/go/kdbx/pkg/kdbx"
	"zombiezen.com/go/kdbx/pkg/kdbxcrypt"
)

// description is the summary printed for an opened database.
type description struct {
	File            string `json:"file"`
	Version         string `json:"version"`
	Cipher          string `json:"cipher"`
	Compression     string `json:"compression"`
	TransformRounds uint64 `json:"transform_rounds"`
	InnerStream     string `json:"inner_stream"`
	Comment         string `json:"comment,omitempty"`
	HeaderHash      string `json:"header_hash"`
	PayloadSize     int    `json:"payload_size"`
}

func describe(path string, db *kdbx.Database) *description {
	h := db.Header()
	hh := db.HeaderHash()
	return &description{
		File:            path,
		Version:         strconv.Itoa(int(h.MajorVersion)) + "." + strconv.Itoa(int(h.MinorVersion)),
		Cipher:          kdbxcrypt.CipherName(h.CipherID),
		Compression:     h.Compression.String(),
		TransformRounds: h.TransformRounds,
		InnerStream:     h.InnerRandomStreamID.String(),
		Comment:         h.Comment,
		HeaderHash:      hex.EncodeToString(hh[:]),
		PayloadSize:     db.Size(),
	}
}

func (d *description) writeJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

func (d *description) writeText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "File:\t%s\n", d.File)
	fmt.Fprintf(tw, "Version:\tKDBX %s\n", d.Version)
	fmt.Fprintf(tw, "Cipher:\t%s\n", d.Cipher)
	fmt.Fprintf(tw, "Compression:\t%s\n", d.Compression)
	fmt.Fprintf(tw, "Transform rounds:\t%d\n", d.TransformRounds)
	fmt.Fprintf(tw, "Inner stream:\t%s\n", d.InnerStream)
	if d.Comment != "" {
		fmt.Fprintf(tw, "Comment:\t%s\n", d.Comment)
	}
	fmt.Fprintf(tw, "Header hash:\t%s\n", d.HeaderHash)
	fmt.Fprintf(tw, "Payload:\t%d bytes\n", d.PayloadSize)
	return tw.Flush()
}
