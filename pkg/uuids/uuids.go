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

// Package uuids handles the 16-byte identifiers that KeePass uses to
// name algorithms.  They are formatted like RFC 4122 UUIDs, but no
// version or variant is assumed.
package uuids // import "zombiezen.com/go/kdbx/pkg/uuids"

import (
	"encoding/hex"
	"errors"
	"strconv"
)

// Size is the length of a UUID in bytes.
const Size = 16

// A UUID is a 128-bit identifier.
type UUID [Size]byte

// FromBytes copies a 16-byte slice into a UUID.
func FromBytes(b []byte) (UUID, error) {
	var u UUID
	if len(b) != Size {
		return UUID{}, errSize
	}
	copy(u[:], b)
	return u, nil
}

// Parse parses a hex-encoded UUID string (that may contain dashes) into a UUID.
func Parse(s string) (UUID, error) {
	b := make([]byte, 0, hex.EncodedLen(Size))
	for i := 0; i < len(s); i++ {
		if s[i] != '-' {
			b = append(b, s[i])
		}
	}
	var u UUID
	if len(b) != hex.EncodedLen(len(u)) {
		return UUID{}, parseError{s, errSize}
	}
	if _, err := hex.Decode(u[:], b); err != nil {
		return UUID{}, parseError{s, err}
	}
	return u, nil
}

// MustParse is like Parse but panics if s cannot be parsed.
// It is intended for package-level constants.
func MustParse(s string) UUID {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

var errSize = errors.New("wrong size")

type parseError struct {
	s   string
	err error
}

func (e parseError) Error() string {
	return "uuid: failed to parse " + strconv.Quote(e.s) + ": " + e.err.Error()
}

func (e parseError) Unwrap() error {
	return e.err
}

// AppendHex appends the dash-separated hex representation of u to b
// and returns the extended buffer.
func (u UUID) AppendHex(b []byte) []byte {
	b = hex.AppendEncode(b, u[:4])
	b = append(b, '-')
	b = hex.AppendEncode(b, u[4:6])
	b = append(b, '-')
	b = hex.AppendEncode(b, u[6:8])
	b = append(b, '-')
	b = hex.AppendEncode(b, u[8:10])
	b = append(b, '-')
	b = hex.AppendEncode(b, u[10:])
	return b
}

// IsZero reports whether this is the zero UUID.
func (u UUID) IsZero() bool {
	return u == UUID{}
}

// String returns the dash-separated hex representation of u as a string.
func (u UUID) String() string {
	return string(u.AppendHex(make([]byte, 0, 36)))
}

// MarshalText implements encoding.TextMarshaler using the dashed hex form.
func (u UUID) MarshalText() ([]byte, error) {
	return u.AppendHex(make([]byte, 0, 36)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.  It accepts any
// string that Parse accepts.
func (u *UUID) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*u = v
	return nil
}
