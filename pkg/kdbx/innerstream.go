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

package kdbx

import (
	"crypto/cipher"
	"crypto/rc4"
	"crypto/sha256"
	"crypto/sha512"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/salsa20/salsa"
)

var salsa20Nonce = [8]byte{0xe8, 0x30, 0x09, 0x4b, 0x97, 0x20, 0x5d, 0x2a}

const salsaBlockSize = 64

// arcFourDiscard is the number of keystream bytes dropped before use.
const arcFourDiscard = 512

// newInnerStream returns the keystream for protected values in the
// payload.  Values are decrypted in document order from one stream.
func newInnerStream(id InnerStreamID, key [32]byte) (cipher.Stream, error) {
	switch id {
	case InnerStreamNone:
		return nullStream{}, nil
	case InnerStreamArcFour:
		c, err := rc4.NewCipher(key[:])
		if err != nil {
			return nil, err
		}
		var discard [arcFourDiscard]byte
		c.XORKeyStream(discard[:], discard[:])
		return c, nil
	case InnerStreamSalsa20:
		s := &salsa20Stream{key: sha256.Sum256(key[:]), used: salsaBlockSize}
		copy(s.counter[:], salsa20Nonce[:])
		return s, nil
	case InnerStreamChaCha:
		h := sha512.Sum512(key[:])
		defer clear(h[:])
		c, err := chacha20.NewUnauthenticatedCipher(h[:chacha20.KeySize], h[chacha20.KeySize:chacha20.KeySize+chacha20.NonceSize])
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, formatError(fieldInnerRandomStreamID.String(), ErrInvalidFieldValue)
	}
}

type nullStream struct{}

func (nullStream) XORKeyStream(dst, src []byte) {
	copy(dst, src)
}

// salsa20Stream is a Salsa20/20 keystream that keeps its position
// across calls.
type salsa20Stream struct {
	key     [32]byte
	counter [16]byte // nonce, then little-endian block number
	block   [salsaBlockSize]byte
	used    int
}

func (s *salsa20Stream) XORKeyStream(dst, src []byte) {
	if len(dst) < len(src) {
		panic("kdbx: output smaller than input")
	}
	for i, b := range src {
		if s.used == len(s.block) {
			s.refill()
		}
		dst[i] = b ^ s.block[s.used]
		s.used++
	}
}

func (s *salsa20Stream) refill() {
	clear(s.block[:])
	salsa.XORKeyStream(s.block[:], s.block[:], &s.counter, &s.key)
	for i := 8; i < len(s.counter); i++ {
		s.counter[i]++
		if s.counter[i] != 0 {
			break
		}
	}
	s.used = 0
}
