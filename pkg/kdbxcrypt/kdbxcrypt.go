// Copyright 2016 Ross Light
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

// Package kdbxcrypt derives keys for and decrypts the payload of KeePass 2
// (KDBX 3.x) databases.
package kdbxcrypt // import "zombiezen.com/go/kdbx/pkg/kdbxcrypt"

import (
	"crypto/aes"
	"crypto/sha256"
	"errors"
)

// Errors
var (
	ErrUnsupportedCipher = errors.New("kdbx: unsupported cipher")
	ErrRoundsTooLarge    = errors.New("kdbx: key transformation rounds exceed limit")

	// ErrDecryptionFailed reads the same as a failed integrity check so
	// that callers cannot tell a padding failure from a wrong password.
	ErrDecryptionFailed = errors.New("kdbx: password does not match or database is corrupt")
)

// KeySize is the size in bytes of every key handled by this package.
const KeySize = sha256.Size

// DefaultMaxTransformRounds bounds the number of key transformation
// rounds a database may request when the caller does not choose a limit.
// It is roughly ten seconds of work on a desktop CPU.
const DefaultMaxTransformRounds = 100000000

// A Key is the set of parameters used to build the master key.
type Key struct {
	Password        []byte // optional
	KeyFileHash     []byte // must be nil or length 32
	MasterSeed      [32]byte
	TransformSeed   [32]byte
	TransformRounds uint64
}

// MasterKey derives the key that decrypts the payload.  It returns
// ErrRoundsTooLarge without doing any work if k.TransformRounds is
// greater than maxRounds.
func (k *Key) MasterKey(maxRounds uint64) ([KeySize]byte, error) {
	if k.TransformRounds > maxRounds {
		return [KeySize]byte{}, ErrRoundsTooLarge
	}
	composite := k.CompositeKey()
	defer clear(composite[:])
	tk := TransformKey(composite, k.TransformSeed, k.TransformRounds)
	defer clear(tk[:])

	sum := sha256.New()
	sum.Write(k.MasterSeed[:])
	sum.Write(tk[:])
	var mk [KeySize]byte
	sum.Sum(mk[:0])
	return mk, nil
}

// CompositeKey returns the hash of the key's factors prior to
// transformation rounds.  The password is a factor if it is set or if
// there is no key file, so an empty password still opens a database
// that was locked with one.
func (k *Key) CompositeKey() [KeySize]byte {
	var factors [][]byte
	var pw [KeySize]byte
	if len(k.Password) > 0 || len(k.KeyFileHash) == 0 {
		pw = sha256.Sum256(k.Password)
		factors = append(factors, pw[:])
	}
	if len(k.KeyFileHash) > 0 {
		factors = append(factors, k.KeyFileHash)
	}
	ck := CompositeKey(factors...)
	clear(pw[:])
	return ck
}

// CompositeKey hashes the concatenation of the given factor hashes in order.
func CompositeKey(hashes ...[]byte) [KeySize]byte {
	sum := sha256.New()
	for _, h := range hashes {
		sum.Write(h)
	}
	var ck [KeySize]byte
	sum.Sum(ck[:0])
	return ck
}

// TransformKey applies rounds of AES-256 encryption keyed by seed to both
// halves of the composite key and returns the SHA-256 of the result.
// Each round consumes the previous round's output.
func TransformKey(composite, seed [KeySize]byte, rounds uint64) [KeySize]byte {
	c, err := aes.NewCipher(seed[:])
	if err != nil {
		// A 32-byte key is always valid.
		panic(err)
	}
	buf := composite
	lo, hi := buf[:aes.BlockSize], buf[aes.BlockSize:]
	for i := uint64(0); i < rounds; i++ {
		c.Encrypt(lo, lo)
		c.Encrypt(hi, hi)
	}
	tk := sha256.Sum256(buf[:])
	clear(buf[:])
	return tk
}
