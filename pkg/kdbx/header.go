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
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"zombiezen.com/go/kdbx/pkg/bytecursor"
	"zombiezen.com/go/kdbx/pkg/kdbxcrypt"
	"zombiezen.com/go/kdbx/pkg/uuids"
)

// File signatures
const (
	Signature1           uint32 = 0x9aa2d903
	Signature2           uint32 = 0xb54bfb67
	Signature2PreRelease uint32 = 0xb54bfb66
	signature2KDB        uint32 = 0xb54bfb65
)

// MaxMajorVersion is the newest file format version this package reads.
const MaxMajorVersion = 3

// Compression is the payload compression algorithm.
type Compression uint32

// Compression algorithms
const (
	NoCompression   Compression = 0
	GzipCompression Compression = 1
)

func (c Compression) String() string {
	switch c {
	case NoCompression:
		return "none"
	case GzipCompression:
		return "gzip"
	default:
		return "Compression(" + strconv.FormatUint(uint64(c), 10) + ")"
	}
}

// InnerStreamID selects the stream cipher that protects field values
// inside the payload.
type InnerStreamID uint32

// Inner stream ciphers
const (
	InnerStreamNone    InnerStreamID = 0
	InnerStreamArcFour InnerStreamID = 1
	InnerStreamSalsa20 InnerStreamID = 2
	InnerStreamChaCha  InnerStreamID = 3
)

func (id InnerStreamID) String() string {
	switch id {
	case InnerStreamNone:
		return "none"
	case InnerStreamArcFour:
		return "ArcFourVariant"
	case InnerStreamSalsa20:
		return "Salsa20"
	case InnerStreamChaCha:
		return "ChaCha20"
	default:
		return "InnerStreamID(" + strconv.FormatUint(uint64(id), 10) + ")"
	}
}

// Header is the parsed, validated plaintext header of a database.
// It contains no slices, so copies are independent.
type Header struct {
	Signature2   uint32
	MajorVersion uint16
	MinorVersion uint16

	Comment             string
	CipherID            uuids.UUID
	Compression         Compression
	MasterSeed          [32]byte
	TransformSeed       [32]byte
	TransformRounds     uint64
	EncryptionIV        [kdbxcrypt.BlockSize]byte
	ProtectedStreamKey  [32]byte
	StreamStartBytes    [32]byte
	InnerRandomStreamID InnerStreamID
}

// Cipher returns the payload cipher.  ParseHeader guarantees that it is
// supported.
func (h *Header) Cipher() kdbxcrypt.Cipher {
	c, _ := kdbxcrypt.CipherFromID(h.CipherID)
	return c
}

type fieldType uint8

const (
	fieldEnd fieldType = iota
	fieldComment
	fieldCipherID
	fieldCompression
	fieldMasterSeed
	fieldTransformSeed
	fieldTransformRounds
	fieldEncryptionIV
	fieldProtectedStreamKey
	fieldStreamStartBytes
	fieldInnerRandomStreamID

	numFieldTypes
)

var fieldNames = [numFieldTypes]string{
	fieldEnd:                 "End",
	fieldComment:             "Comment",
	fieldCipherID:            "CipherID",
	fieldCompression:         "Compression",
	fieldMasterSeed:          "MasterSeed",
	fieldTransformSeed:       "TransformSeed",
	fieldTransformRounds:     "TransformRounds",
	fieldEncryptionIV:        "EncryptionIV",
	fieldProtectedStreamKey:  "ProtectedStreamKey",
	fieldStreamStartBytes:    "StreamStartBytes",
	fieldInnerRandomStreamID: "InnerRandomStreamID",
}

// fieldSizes lists the required value length of each field.
// -1 means any length.
var fieldSizes = [numFieldTypes]int{
	fieldEnd:                 -1,
	fieldComment:             -1,
	fieldCipherID:            uuids.Size,
	fieldCompression:         4,
	fieldMasterSeed:          32,
	fieldTransformSeed:       32,
	fieldTransformRounds:     8,
	fieldEncryptionIV:        kdbxcrypt.BlockSize,
	fieldProtectedStreamKey:  32,
	fieldStreamStartBytes:    32,
	fieldInnerRandomStreamID: 4,
}

func (t fieldType) String() string {
	if t < numFieldTypes {
		return fieldNames[t]
	}
	return "field type " + strconv.Itoa(int(t))
}

// ParseHeader parses the header at the start of a database file.  It
// returns the header and the offset of the first ciphertext byte.
// Every error is a *FormatError.
func ParseHeader(b []byte) (*Header, int, error) {
	c := bytecursor.New(b)
	var hb headerBuilder
	if err := hb.readPrefix(c); err != nil {
		return nil, 0, err
	}
	for {
		typ, err := c.ReadUint8()
		if err != nil {
			return nil, 0, formatError("", err)
		}
		size, err := c.ReadUint16()
		if err != nil {
			return nil, 0, formatError(fieldType(typ).String(), err)
		}
		value, err := c.Read(int(size))
		if err != nil {
			return nil, 0, formatError(fieldType(typ).String(), err)
		}
		if fieldType(typ) == fieldEnd {
			break
		}
		if err := hb.set(fieldType(typ), value); err != nil {
			return nil, 0, err
		}
	}
	h, err := hb.finish()
	if err != nil {
		return nil, 0, err
	}
	return h, c.Offset(), nil
}

// headerBuilder accumulates fields until the end of the header.
type headerBuilder struct {
	h    Header
	seen uint16
}

func (hb *headerBuilder) readPrefix(c *bytecursor.Cursor) error {
	sig1, err := c.ReadUint32()
	if err != nil {
		return formatError("", err)
	}
	sig2, err := c.ReadUint32()
	if err != nil {
		return formatError("", err)
	}
	if sig1 != Signature1 {
		return formatError("", ErrInvalidSignature)
	}
	switch sig2 {
	case Signature2, Signature2PreRelease:
	case signature2KDB:
		return formatError("", ErrUnsupportedVersion)
	default:
		return formatError("", ErrInvalidSignature)
	}
	hb.h.Signature2 = sig2
	if hb.h.MinorVersion, err = c.ReadUint16(); err != nil {
		return formatError("", err)
	}
	if hb.h.MajorVersion, err = c.ReadUint16(); err != nil {
		return formatError("", err)
	}
	if hb.h.MajorVersion > MaxMajorVersion {
		return formatError("", ErrUnsupportedVersion)
	}
	return nil
}

func (hb *headerBuilder) set(t fieldType, value []byte) error {
	if t >= numFieldTypes {
		return formatError(t.String(), ErrUnknownField)
	}
	name := t.String()
	if hb.seen&(1<<t) != 0 {
		return formatError(name, ErrDuplicateField)
	}
	if n := fieldSizes[t]; n >= 0 && len(value) != n {
		return formatError(name, ErrInvalidFieldLength)
	}
	hb.seen |= 1 << t

	v := bytecursor.New(value)
	switch t {
	case fieldComment:
		hb.h.Comment = decodeComment(value)
	case fieldCipherID:
		copy(hb.h.CipherID[:], value)
	case fieldCompression:
		x, _ := v.ReadUint32()
		hb.h.Compression = Compression(x)
	case fieldMasterSeed:
		copy(hb.h.MasterSeed[:], value)
	case fieldTransformSeed:
		copy(hb.h.TransformSeed[:], value)
	case fieldTransformRounds:
		hb.h.TransformRounds, _ = v.ReadUint64()
	case fieldEncryptionIV:
		copy(hb.h.EncryptionIV[:], value)
	case fieldProtectedStreamKey:
		copy(hb.h.ProtectedStreamKey[:], value)
	case fieldStreamStartBytes:
		copy(hb.h.StreamStartBytes[:], value)
	case fieldInnerRandomStreamID:
		x, _ := v.ReadUint32()
		hb.h.InnerRandomStreamID = InnerStreamID(x)
	}
	return nil
}

// finish checks that every required field is present and valid and
// returns the completed header.
func (hb *headerBuilder) finish() (*Header, error) {
	for t := fieldCipherID; t < numFieldTypes; t++ {
		if hb.seen&(1<<t) == 0 {
			return nil, formatError(t.String(), ErrMissingField)
		}
	}
	h := hb.h
	if _, err := kdbxcrypt.CipherFromID(h.CipherID); err != nil {
		return nil, formatError(fieldCipherID.String(), err)
	}
	if h.Compression != NoCompression && h.Compression != GzipCompression {
		return nil, formatError(fieldCompression.String(), ErrInvalidFieldValue)
	}
	if h.TransformRounds == 0 {
		return nil, formatError(fieldTransformRounds.String(), ErrInvalidFieldValue)
	}
	if h.InnerRandomStreamID > InnerStreamChaCha {
		return nil, formatError(fieldInnerRandomStreamID.String(), ErrInvalidFieldValue)
	}
	return &h, nil
}

// decodeComment returns a UTF-8 comment unchanged and decodes anything
// else as Windows-1252, the encoding KeePass 1 used for free text.
func decodeComment(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	s, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}
