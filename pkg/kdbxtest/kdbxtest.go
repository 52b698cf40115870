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

// Package kdbxtest builds encrypted KDBX 3.1 files in memory for tests.
package kdbxtest // import "zombiezen.com/go/kdbx/pkg/kdbxtest"

import (
	"bytes"
	"encoding/binary"
	"math"
	"slices"

	"github.com/klauspost/compress/gzip"
	"zombiezen.com/go/kdbx/pkg/hashedblock"
	"zombiezen.com/go/kdbx/pkg/kdbxcrypt"
)

// Header field type codes.
const (
	End uint8 = iota
	Comment
	CipherID
	Compression
	MasterSeed
	TransformSeed
	TransformRounds
	EncryptionIV
	ProtectedStreamKey
	StreamStartBytes
	InnerRandomStreamID
)

// File signatures.
const (
	Signature1 uint32 = 0x9aa2d903
	Signature2 uint32 = 0xb54bfb67
)

// DefaultPayload is the payload of Default.
const DefaultPayload = `<?xml version="1.0" encoding="utf-8" standalone="yes"?>
<KeePassFile>
	<Meta>
		<Generator>kdbxtest</Generator>
		<DatabaseName>Test</DatabaseName>
	</Meta>
	<Root>
		<Group>
			<Name>Root</Name>
		</Group>
	</Root>
</KeePassFile>
`

// A Field is a raw header field.
type Field struct {
	Type  uint8
	Value []byte
}

// A Fixture describes a database file.  Field values are written as
// given, without validation, so fixtures can describe malformed files.
type Fixture struct {
	Password    string
	KeyFileHash []byte

	Signature2   uint32
	MajorVersion uint16
	MinorVersion uint16

	Comment             []byte // omitted if nil
	Cipher              kdbxcrypt.Cipher
	Compression         uint32
	MasterSeed          [32]byte
	TransformSeed       [32]byte
	TransformRounds     uint64
	EncryptionIV        [kdbxcrypt.BlockSize]byte
	ProtectedStreamKey  [32]byte
	StreamStartBytes    [32]byte
	InnerRandomStreamID uint32

	Payload   []byte
	BlockSize int // hashed block size; zero means one block

	// Omit lists field types to leave out of the header.
	Omit []uint8
	// Extra fields are written after the standard fields.
	Extra []Field
}

// Default returns a gzip-compressed AES-256 fixture with password "test",
// a master seed of 32 zero bytes, a transform seed of 32 0x01 bytes
// and a single transformation round.
func Default() *Fixture {
	f := &Fixture{
		Password:            "test",
		Signature2:          Signature2,
		MajorVersion:        3,
		MinorVersion:        1,
		Cipher:              kdbxcrypt.AES256,
		Compression:         1,
		TransformRounds:     1,
		InnerRandomStreamID: 2,
		Payload:             []byte(DefaultPayload),
	}
	fill(f.TransformSeed[:], 0x01)
	fill(f.EncryptionIV[:], 0x02)
	fill(f.ProtectedStreamKey[:], 0x03)
	for i := range f.StreamStartBytes {
		f.StreamStartBytes[i] = byte(i)
	}
	return f
}

func fill(b []byte, x byte) {
	for i := range b {
		b[i] = x
	}
}

// Fields returns the header fields in the order they are written,
// excluding the terminator.
func (f *Fixture) Fields() []Field {
	id := f.Cipher.ID()
	fields := []Field{
		{CipherID, id[:]},
		{Compression, binary.LittleEndian.AppendUint32(nil, f.Compression)},
		{MasterSeed, f.MasterSeed[:]},
		{TransformSeed, f.TransformSeed[:]},
		{TransformRounds, binary.LittleEndian.AppendUint64(nil, f.TransformRounds)},
		{EncryptionIV, f.EncryptionIV[:]},
		{ProtectedStreamKey, f.ProtectedStreamKey[:]},
		{StreamStartBytes, f.StreamStartBytes[:]},
		{InnerRandomStreamID, binary.LittleEndian.AppendUint32(nil, f.InnerRandomStreamID)},
	}
	if f.Comment != nil {
		fields = append([]Field{{Comment, f.Comment}}, fields...)
	}
	fields = slices.DeleteFunc(fields, func(fd Field) bool {
		return slices.Contains(f.Omit, fd.Type)
	})
	return append(fields, f.Extra...)
}

// Header returns the encoded header.
func (f *Fixture) Header() []byte {
	return EncodeHeader(f.Signature2, f.MinorVersion, f.MajorVersion, f.Fields())
}

// EncodeHeader encodes a header with the given fields followed by a
// terminator.
func EncodeHeader(sig2 uint32, minor, major uint16, fields []Field) []byte {
	b := binary.LittleEndian.AppendUint32(nil, Signature1)
	b = binary.LittleEndian.AppendUint32(b, sig2)
	b = binary.LittleEndian.AppendUint16(b, minor)
	b = binary.LittleEndian.AppendUint16(b, major)
	for _, fd := range fields {
		b = AppendField(b, fd.Type, fd.Value)
	}
	return AppendField(b, End, []byte("\r\n\r\n"))
}

// AppendField appends one encoded header field to b.
func AppendField(b []byte, typ uint8, value []byte) []byte {
	b = append(b, typ)
	b = binary.LittleEndian.AppendUint16(b, uint16(len(value)))
	return append(b, value...)
}

// Plaintext returns the decrypted form of the payload: the stream start
// bytes followed by the hashed blocks of the (compressed) payload.
func (f *Fixture) Plaintext() ([]byte, error) {
	data := f.Payload
	if f.Compression == 1 {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		data = buf.Bytes()
	}
	blockSize := f.BlockSize
	if blockSize <= 0 {
		blockSize = max(len(data), 1)
	}
	plain := append([]byte(nil), f.StreamStartBytes[:]...)
	return append(plain, hashedblock.Encode(data, blockSize)...), nil
}

// MasterKey derives the fixture's master key.
func (f *Fixture) MasterKey() ([kdbxcrypt.KeySize]byte, error) {
	k := kdbxcrypt.Key{
		Password:        []byte(f.Password),
		KeyFileHash:     f.KeyFileHash,
		MasterSeed:      f.MasterSeed,
		TransformSeed:   f.TransformSeed,
		TransformRounds: f.TransformRounds,
	}
	return k.MasterKey(math.MaxUint64)
}

// Seal returns the header followed by plain encrypted with the
// fixture's key.
func (f *Fixture) Seal(plain []byte) ([]byte, error) {
	mk, err := f.MasterKey()
	if err != nil {
		return nil, err
	}
	ct, err := kdbxcrypt.Encrypt(mk, f.EncryptionIV[:], plain, f.Cipher)
	if err != nil {
		return nil, err
	}
	return append(f.Header(), ct...), nil
}

// Bytes returns the complete database file.
func (f *Fixture) Bytes() ([]byte, error) {
	plain, err := f.Plaintext()
	if err != nil {
		return nil, err
	}
	return f.Seal(plain)
}
