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

package kdbxcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"golang.org/x/crypto/twofish"
	"zombiezen.com/go/kdbx/pkg/padding"
	"zombiezen.com/go/kdbx/pkg/uuids"
)

// BlockSize is the block size in bytes of every supported cipher.
const BlockSize = 16

var errIVSize = errors.New("kdbx: IV size does not match cipher block size")

// Cipher is a payload cipher algorithm.
type Cipher int

// Available ciphers
const (
	AES256 Cipher = iota + 1
	Twofish
)

// Cipher identifiers as stored in the database header.
var (
	AES256ID   = uuids.MustParse("31c1f2e6-bf71-4350-be58-05216afc5aff")
	TwofishID  = uuids.MustParse("ad68f29f-576f-4bb9-a36a-d47af965346c")
	ChaCha20ID = uuids.MustParse("d6038a2b-8b6f-4cb5-a524-339a31dbb59a")
)

// CipherFromID returns the cipher named by a header cipher ID.
// ChaCha20 is only used by KDBX 4 and is reported as unsupported.
func CipherFromID(id uuids.UUID) (Cipher, error) {
	switch id {
	case AES256ID:
		return AES256, nil
	case TwofishID:
		return Twofish, nil
	default:
		return 0, ErrUnsupportedCipher
	}
}

// ID returns the header identifier for c or the zero UUID if c is not
// a known cipher.
func (c Cipher) ID() uuids.UUID {
	switch c {
	case AES256:
		return AES256ID
	case Twofish:
		return TwofishID
	default:
		return uuids.UUID{}
	}
}

func (c Cipher) String() string {
	switch c {
	case AES256:
		return "AES-256"
	case Twofish:
		return "Twofish"
	default:
		return "unknown"
	}
}

// CipherName returns a human-readable name for a header cipher ID,
// including IDs that this package cannot decrypt.
func CipherName(id uuids.UUID) string {
	if id == ChaCha20ID {
		return "ChaCha20"
	}
	c, err := CipherFromID(id)
	if err != nil {
		return id.String()
	}
	return c.String()
}

func (c Cipher) block(key []byte) (cipher.Block, error) {
	switch c {
	case AES256:
		return aes.NewCipher(key)
	case Twofish:
		return twofish.NewCipher(key)
	default:
		return nil, ErrUnsupportedCipher
	}
}

// Decrypt decrypts a CBC-encrypted payload and strips its PKCS7
// padding.  Malformed ciphertext of any kind is reported as
// ErrDecryptionFailed.  The ciphertext is not modified.
func Decrypt(masterKey [KeySize]byte, iv []byte, ciphertext []byte, id uuids.UUID) ([]byte, error) {
	c, err := CipherFromID(id)
	if err != nil {
		return nil, err
	}
	if len(iv) != BlockSize || len(ciphertext) == 0 || len(ciphertext)%BlockSize != 0 {
		return nil, ErrDecryptionFailed
	}
	block, err := c.block(masterKey[:])
	if err != nil {
		return nil, err
	}
	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)
	stripped, err := padding.PKCS7.Strip(plain, BlockSize)
	if err != nil {
		clear(plain)
		return nil, ErrDecryptionFailed
	}
	return stripped, nil
}

// Encrypt is the inverse of Decrypt.  Databases are never written by
// this module; Encrypt exists to build test fixtures.
func Encrypt(masterKey [KeySize]byte, iv []byte, plaintext []byte, c Cipher) ([]byte, error) {
	block, err := c.block(masterKey[:])
	if err != nil {
		return nil, err
	}
	if len(iv) != BlockSize {
		return nil, errIVSize
	}
	buf := make([]byte, len(plaintext), len(plaintext)+BlockSize)
	copy(buf, plaintext)
	buf = padding.PKCS7.Pad(buf, BlockSize)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(buf, buf)
	return buf, nil
}
