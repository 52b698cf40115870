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

// Package hashedblock decodes the block framing that KDBX 3 applies to
// the decrypted payload.  Each block is a little-endian uint32 index, the
// SHA-256 of its data, a uint32 data size, then the data.  An empty block
// with a zero hash ends the stream.
package hashedblock // import "zombiezen.com/go/kdbx/pkg/hashedblock"

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"errors"

	"zombiezen.com/go/kdbx/pkg/bytecursor"
)

// Errors
var (
	ErrBlockIndex   = errors.New("hashedblock: block out of sequence")
	ErrHashMismatch = errors.New("hashedblock: block hash mismatch")
)

// DefaultBlockSize is the data size KeePass uses for every block but the last.
const DefaultBlockSize = 1024 * 1024

// Decode verifies every block in b and returns the concatenated data.
// Missing or short blocks are reported as bytecursor.ErrTruncated.
// Bytes after the final block are ignored.
func Decode(b []byte) ([]byte, error) {
	c := bytecursor.New(b)
	out := make([]byte, 0, len(b))
	for want := uint32(0); ; want++ {
		index, err := c.ReadUint32()
		if err != nil {
			return nil, err
		}
		hash, err := c.Read(sha256.Size)
		if err != nil {
			return nil, err
		}
		size, err := c.ReadUint32()
		if err != nil {
			return nil, err
		}
		if index != want {
			return nil, ErrBlockIndex
		}
		if size == 0 {
			var zero [sha256.Size]byte
			if subtle.ConstantTimeCompare(hash, zero[:]) != 1 {
				return nil, ErrHashMismatch
			}
			return out, nil
		}
		if uint64(size) > uint64(c.Len()) {
			return nil, bytecursor.ErrTruncated
		}
		data, err := c.Read(int(size))
		if err != nil {
			return nil, err
		}
		sum := sha256.Sum256(data)
		if subtle.ConstantTimeCompare(hash, sum[:]) != 1 {
			return nil, ErrHashMismatch
		}
		out = append(out, data...)
	}
}

// Encode frames data into blocks of at most blockSize bytes, followed by
// the terminating block.  A blockSize of zero means DefaultBlockSize.
func Encode(data []byte, blockSize int) []byte {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	out := make([]byte, 0, len(data)+(len(data)/blockSize+2)*(8+sha256.Size))
	var index uint32
	for len(data) > 0 {
		n := min(len(data), blockSize)
		out = appendBlock(out, index, data[:n])
		data = data[n:]
		index++
	}
	var zero [sha256.Size]byte
	out = binary.LittleEndian.AppendUint32(out, index)
	out = append(out, zero[:]...)
	return binary.LittleEndian.AppendUint32(out, 0)
}

func appendBlock(out []byte, index uint32, data []byte) []byte {
	sum := sha256.Sum256(data)
	out = binary.LittleEndian.AppendUint32(out, index)
	out = append(out, sum[:]...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(data)))
	return append(out, data...)
}
