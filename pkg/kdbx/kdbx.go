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

// Package kdbx opens KeePass 2 databases in the KDBX 3.x format.
//
// Opening a database parses the plaintext header, derives the master key
// from the password and key file, decrypts the payload, verifies it and
// decompresses it.  The result is the payload XML document, which is
// left for the caller to decode along with the inner stream that
// protects its secret values.
package kdbx // import "zombiezen.com/go/kdbx/pkg/kdbx"

import (
	"bytes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"io"
	"os"
	"time"

	"zombiezen.com/go/kdbx/pkg/bytecursor"
	"zombiezen.com/go/kdbx/pkg/hashedblock"
	"zombiezen.com/go/kdbx/pkg/kdbxcrypt"
)

// A Database is a decrypted KDBX file.  It is safe to read from
// multiple goroutines until Wipe is called.
type Database struct {
	header     Header
	headerHash [sha256.Size]byte
	payload    []byte
}

// OpenFile reads and decrypts the database at path.
func OpenFile(path string, opts *Options) (*Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	return open(data, opts)
}

// Open reads r to EOF and decrypts the database it contains.
func Open(r io.Reader, opts *Options) (*Database, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &IOError{Err: err}
	}
	return open(data, opts)
}

func open(data []byte, opts *Options) (*Database, error) {
	log := opts.logger()
	h, n, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Uint16("major", h.MajorVersion).
		Uint16("minor", h.MinorVersion).
		Stringer("cipher", h.Cipher()).
		Stringer("compression", h.Compression).
		Uint64("rounds", h.TransformRounds).
		Stringer("inner_stream", h.InnerRandomStreamID).
		Int("header_size", n).
		Msg("parsed header")

	kfHash, err := opts.getKeyFileHash()
	if err != nil {
		return nil, &KeyFileError{Err: err}
	}
	key := kdbxcrypt.Key{
		Password:        []byte(opts.getPassword()),
		KeyFileHash:     kfHash,
		MasterSeed:      h.MasterSeed,
		TransformSeed:   h.TransformSeed,
		TransformRounds: h.TransformRounds,
	}
	defer clear(key.Password)
	defer clear(key.KeyFileHash)
	start := time.Now()
	mk, err := key.MasterKey(opts.getMaxTransformRounds())
	if err != nil {
		return nil, &CryptoError{Err: err}
	}
	defer clear(mk[:])
	log.Debug().Dur("elapsed", time.Since(start)).Msg("derived master key")

	plain, err := kdbxcrypt.Decrypt(mk, h.EncryptionIV[:], data[n:], h.CipherID)
	if err != nil {
		return nil, &CryptoError{Err: err}
	}
	defer clear(plain)
	if err := verifyStartBytes(plain, h.StreamStartBytes); err != nil {
		return nil, err
	}
	blocks, err := hashedblock.Decode(plain[len(h.StreamStartBytes):])
	if err != nil {
		return nil, blockError(err)
	}
	log.Debug().Int("decrypted_size", len(plain)).Int("block_data_size", len(blocks)).Msg("verified payload")

	payload, err := maybeInflate(blocks, h.Compression, opts.getMaxPayloadSize())
	if err != nil {
		clear(blocks)
		return nil, err
	}
	if h.Compression != NoCompression {
		clear(blocks)
	}
	log.Debug().Int("payload_size", len(payload)).Msg("opened database")

	return &Database{
		header:     *h,
		headerHash: sha256.Sum256(data[:n]),
		payload:    payload,
	}, nil
}

func blockError(err error) error {
	if errors.Is(err, bytecursor.ErrTruncated) {
		return formatError("payload", err)
	}
	return &IntegrityError{Err: err}
}

// Header returns a copy of the database's header.
func (db *Database) Header() Header {
	return db.header
}

// HeaderHash returns the SHA-256 hash of the raw header bytes.  KDBX 3.1
// payloads store it in their metadata to detect header tampering.
func (db *Database) HeaderHash() [sha256.Size]byte {
	return db.headerHash
}

// Payload returns a copy of the decrypted, decompressed payload.
func (db *Database) Payload() []byte {
	return bytes.Clone(db.payload)
}

// Size returns the length of the payload in bytes.
func (db *Database) Size() int {
	return len(db.payload)
}

// WriteTo writes the payload to w.
func (db *Database) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(db.payload)
	return int64(n), err
}

// InnerStream returns a new keystream for the protected values in the
// payload, starting from its first byte.
func (db *Database) InnerStream() (cipher.Stream, error) {
	return newInnerStream(db.header.InnerRandomStreamID, db.header.ProtectedStreamKey)
}

// Wipe zeroes the payload and the protected stream key.  The database
// must not be used afterward.
func (db *Database) Wipe() {
	clear(db.payload)
	db.payload = nil
	clear(db.header.ProtectedStreamKey[:])
}
