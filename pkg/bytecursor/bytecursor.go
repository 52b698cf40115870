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

// Package bytecursor provides bounds-checked sequential reads over a byte slice.
package bytecursor // import "zombiezen.com/go/kdbx/pkg/bytecursor"

import (
	"encoding/binary"
	"errors"
)

// ErrTruncated is returned when a read asks for more bytes than remain.
var ErrTruncated = errors.New("unexpected end of data")

// A Cursor reads a byte slice from front to back.  The zero value is
// an empty cursor.
type Cursor struct {
	buf []byte
	off int
}

// New returns a cursor positioned at the start of b.
func New(b []byte) *Cursor {
	return &Cursor{buf: b}
}

// Read returns the next n bytes and advances past them.  The returned
// slice aliases the underlying buffer.  If fewer than n bytes remain,
// Read returns ErrTruncated and does not advance.
func (c *Cursor) Read(n int) ([]byte, error) {
	if n < 0 || n > len(c.buf)-c.off {
		return nil, ErrTruncated
	}
	b := c.buf[c.off : c.off+n : c.off+n]
	c.off += n
	return b, nil
}

// PeekUint8 returns the next byte without advancing.
func (c *Cursor) PeekUint8() (uint8, error) {
	if c.off >= len(c.buf) {
		return 0, ErrTruncated
	}
	return c.buf[c.off], nil
}

// ReadUint8 reads a single byte.
func (c *Cursor) ReadUint8() (uint8, error) {
	b, err := c.Read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUint16 reads a little-endian uint16.
func (c *Cursor) ReadUint16() (uint16, error) {
	b, err := c.Read(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadUint32 reads a little-endian uint32.
func (c *Cursor) ReadUint32() (uint32, error) {
	b, err := c.Read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadUint64 reads a little-endian uint64.
func (c *Cursor) ReadUint64() (uint64, error) {
	b, err := c.Read(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Offset returns the number of bytes consumed so far.
func (c *Cursor) Offset() int {
	return c.off
}

// Len returns the number of unread bytes.
func (c *Cursor) Len() int {
	return len(c.buf) - c.off
}

// Rest returns the unread bytes without advancing.
func (c *Cursor) Rest() []byte {
	return c.buf[c.off:]
}
