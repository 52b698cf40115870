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
	"bytes"
	"errors"
	"slices"
	"testing"

	"zombiezen.com/go/kdbx/pkg/kdbxcrypt"
	"zombiezen.com/go/kdbx/pkg/kdbxtest"
)

func wantHeader(f *kdbxtest.Fixture) Header {
	return Header{
		Signature2:          f.Signature2,
		MajorVersion:        f.MajorVersion,
		MinorVersion:        f.MinorVersion,
		Comment:             string(f.Comment),
		CipherID:            f.Cipher.ID(),
		Compression:         Compression(f.Compression),
		MasterSeed:          f.MasterSeed,
		TransformSeed:       f.TransformSeed,
		TransformRounds:     f.TransformRounds,
		EncryptionIV:        f.EncryptionIV,
		ProtectedStreamKey:  f.ProtectedStreamKey,
		StreamStartBytes:    f.StreamStartBytes,
		InnerRandomStreamID: InnerStreamID(f.InnerRandomStreamID),
	}
}

func TestParseHeader(t *testing.T) {
	f := kdbxtest.Default()
	f.Comment = []byte("hello")
	hdr := f.Header()
	data := append(append([]byte(nil), hdr...), "ciphertext"...)
	h, n, err := ParseHeader(data)
	if err != nil {
		t.Fatal("ParseHeader:", err)
	}
	if n != len(hdr) {
		t.Errorf("ParseHeader offset = %d; want %d", n, len(hdr))
	}
	if want := wantHeader(f); *h != want {
		t.Errorf("ParseHeader = %+v; want %+v", *h, want)
	}
	if h.Cipher() != kdbxcrypt.AES256 {
		t.Errorf("h.Cipher() = %v; want %v", h.Cipher(), kdbxcrypt.AES256)
	}
}

func TestParseHeaderFieldOrder(t *testing.T) {
	f := kdbxtest.Default()
	f.Comment = []byte("order")
	f.Cipher = kdbxcrypt.Twofish
	f.Compression = 0
	f.TransformRounds = 6000
	want := wantHeader(f)
	fields := f.Fields()
	for i := range fields {
		rotated := append(slices.Clone(fields[i:]), fields[:i]...)
		reversed := slices.Clone(rotated)
		slices.Reverse(reversed)
		for _, order := range [][]kdbxtest.Field{rotated, reversed} {
			hdr := kdbxtest.EncodeHeader(f.Signature2, f.MinorVersion, f.MajorVersion, order)
			h, _, err := ParseHeader(hdr)
			if err != nil {
				t.Errorf("ParseHeader(fields rotated by %d): %v", i, err)
				continue
			}
			if *h != want {
				t.Errorf("ParseHeader(fields rotated by %d) = %+v; want %+v", i, *h, want)
			}
		}
	}
}

func TestParseHeaderTruncated(t *testing.T) {
	f := kdbxtest.Default()
	f.Comment = []byte("truncate me")
	hdr := f.Header()
	for i := 0; i < len(hdr); i++ {
		_, _, err := ParseHeader(hdr[:i])
		var fe *FormatError
		if !errors.As(err, &fe) || !errors.Is(err, ErrTruncated) {
			t.Errorf("ParseHeader(hdr[:%d]) error = %v; want truncated *FormatError", i, err)
		}
	}
}

func TestParseHeaderErrors(t *testing.T) {
	withField := func(typ uint8, value []byte) func(f *kdbxtest.Fixture) {
		return func(f *kdbxtest.Fixture) {
			f.Omit = append(f.Omit, typ)
			f.Extra = append(f.Extra, kdbxtest.Field{Type: typ, Value: value})
		}
	}
	tests := []struct {
		name  string
		mod   func(f *kdbxtest.Fixture)
		want  error
		field string
	}{
		{
			name:  "unknown field",
			mod:   func(f *kdbxtest.Fixture) { f.Extra = []kdbxtest.Field{{Type: 11, Value: []byte("x")}} },
			want:  ErrUnknownField,
			field: "field type 11",
		},
		{
			name: "unknown high field",
			mod:  func(f *kdbxtest.Fixture) { f.Extra = []kdbxtest.Field{{Type: 0xff}} },
			want: ErrUnknownField,
		},
		{
			name:  "duplicate",
			mod:   func(f *kdbxtest.Fixture) { f.Extra = []kdbxtest.Field{{Type: kdbxtest.MasterSeed, Value: make([]byte, 32)}} },
			want:  ErrDuplicateField,
			field: "MasterSeed",
		},
		{
			name:  "duplicate comment",
			mod:   func(f *kdbxtest.Fixture) { f.Comment = []byte{}; f.Extra = []kdbxtest.Field{{Type: kdbxtest.Comment}} },
			want:  ErrDuplicateField,
			field: "Comment",
		},
		{
			name:  "short cipher id",
			mod:   withField(kdbxtest.CipherID, make([]byte, 15)),
			want:  ErrInvalidFieldLength,
			field: "CipherID",
		},
		{
			name:  "long compression",
			mod:   withField(kdbxtest.Compression, make([]byte, 8)),
			want:  ErrInvalidFieldLength,
			field: "Compression",
		},
		{
			name:  "empty master seed",
			mod:   withField(kdbxtest.MasterSeed, nil),
			want:  ErrInvalidFieldLength,
			field: "MasterSeed",
		},
		{
			name:  "short rounds",
			mod:   withField(kdbxtest.TransformRounds, []byte{1, 0, 0, 0}),
			want:  ErrInvalidFieldLength,
			field: "TransformRounds",
		},
		{
			name:  "long iv",
			mod:   withField(kdbxtest.EncryptionIV, make([]byte, 32)),
			want:  ErrInvalidFieldLength,
			field: "EncryptionIV",
		},
		{
			name:  "short stream start bytes",
			mod:   withField(kdbxtest.StreamStartBytes, make([]byte, 31)),
			want:  ErrInvalidFieldLength,
			field: "StreamStartBytes",
		},
		{
			name:  "zero rounds",
			mod:   func(f *kdbxtest.Fixture) { f.TransformRounds = 0 },
			want:  ErrInvalidFieldValue,
			field: "TransformRounds",
		},
		{
			name:  "unknown compression",
			mod:   func(f *kdbxtest.Fixture) { f.Compression = 2 },
			want:  ErrInvalidFieldValue,
			field: "Compression",
		},
		{
			name:  "unknown inner stream",
			mod:   func(f *kdbxtest.Fixture) { f.InnerRandomStreamID = 4 },
			want:  ErrInvalidFieldValue,
			field: "InnerRandomStreamID",
		},
		{
			name:  "chacha20 cipher",
			mod:   withField(kdbxtest.CipherID, kdbxcrypt.ChaCha20ID[:]),
			want:  ErrUnsupportedCipher,
			field: "CipherID",
		},
		{
			name: "bad signature 2",
			mod:  func(f *kdbxtest.Fixture) { f.Signature2 = 0x12345678 },
			want: ErrInvalidSignature,
		},
		{
			name: "keepass 1",
			mod:  func(f *kdbxtest.Fixture) { f.Signature2 = 0xb54bfb65 },
			want: ErrUnsupportedVersion,
		},
		{
			name: "kdbx 4",
			mod:  func(f *kdbxtest.Fixture) { f.MajorVersion = 4; f.MinorVersion = 0 },
			want: ErrUnsupportedVersion,
		},
	}
	for _, test := range tests {
		f := kdbxtest.Default()
		test.mod(f)
		_, _, err := ParseHeader(f.Header())
		if !errors.Is(err, test.want) {
			t.Errorf("%s: ParseHeader error = %v; want %v", test.name, err, test.want)
			continue
		}
		var fe *FormatError
		if !errors.As(err, &fe) {
			t.Errorf("%s: ParseHeader error = %#v; want *FormatError", test.name, err)
			continue
		}
		if test.field != "" && fe.Field != test.field {
			t.Errorf("%s: ParseHeader error field = %q; want %q", test.name, fe.Field, test.field)
		}
	}
}

func TestParseHeaderMissingField(t *testing.T) {
	required := []struct {
		typ  uint8
		name string
	}{
		{kdbxtest.CipherID, "CipherID"},
		{kdbxtest.Compression, "Compression"},
		{kdbxtest.MasterSeed, "MasterSeed"},
		{kdbxtest.TransformSeed, "TransformSeed"},
		{kdbxtest.TransformRounds, "TransformRounds"},
		{kdbxtest.EncryptionIV, "EncryptionIV"},
		{kdbxtest.ProtectedStreamKey, "ProtectedStreamKey"},
		{kdbxtest.StreamStartBytes, "StreamStartBytes"},
		{kdbxtest.InnerRandomStreamID, "InnerRandomStreamID"},
	}
	for _, r := range required {
		f := kdbxtest.Default()
		f.Omit = []uint8{r.typ}
		_, _, err := ParseHeader(f.Header())
		var fe *FormatError
		if !errors.As(err, &fe) || !errors.Is(err, ErrMissingField) || fe.Field != r.name {
			t.Errorf("ParseHeader without %s error = %v; want missing %s", r.name, err, r.name)
		}
	}
}

func TestParseHeaderSignature1(t *testing.T) {
	hdr := kdbxtest.Default().Header()
	hdr[0] ^= 0xff
	if _, _, err := ParseHeader(hdr); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("ParseHeader error = %v; want %v", err, ErrInvalidSignature)
	}
}

func TestParseHeaderAcceptedVersions(t *testing.T) {
	tests := []struct {
		sig2         uint32
		major, minor uint16
	}{
		{Signature2, 3, 1},
		{Signature2, 3, 0},
		{Signature2, 2, 20},
		{Signature2PreRelease, 3, 1},
	}
	for _, test := range tests {
		f := kdbxtest.Default()
		f.Signature2 = test.sig2
		f.MajorVersion, f.MinorVersion = test.major, test.minor
		h, _, err := ParseHeader(f.Header())
		if err != nil {
			t.Errorf("ParseHeader(sig %#x, version %d.%d): %v", test.sig2, test.major, test.minor, err)
			continue
		}
		if h.MajorVersion != test.major || h.MinorVersion != test.minor || h.Signature2 != test.sig2 {
			t.Errorf("ParseHeader(sig %#x, version %d.%d) = sig %#x, version %d.%d", test.sig2, test.major, test.minor, h.Signature2, h.MajorVersion, h.MinorVersion)
		}
	}
}

func TestParseHeaderComment(t *testing.T) {
	tests := []struct {
		b    []byte
		want string
	}{
		{[]byte{}, ""},
		{[]byte("plain"), "plain"},
		{[]byte("h\xc3\xa9llo"), "héllo"},
		{[]byte{0x93, 'h', 'i', 0x94, 0x80}, "“hi”€"},
	}
	for _, test := range tests {
		f := kdbxtest.Default()
		f.Comment = test.b
		h, _, err := ParseHeader(f.Header())
		if err != nil {
			t.Errorf("ParseHeader(comment %q): %v", test.b, err)
			continue
		}
		if h.Comment != test.want {
			t.Errorf("ParseHeader(comment %q).Comment = %q; want %q", test.b, h.Comment, test.want)
		}
	}
}

func TestParseHeaderIgnoresEndValue(t *testing.T) {
	f := kdbxtest.Default()
	hdr := f.Header()
	// Replace the "\r\n\r\n" terminator value with an empty one.
	short := append(bytes.Clone(hdr[:len(hdr)-7]), 0, 0, 0)
	h, n, err := ParseHeader(short)
	if err != nil {
		t.Fatal("ParseHeader:", err)
	}
	if n != len(short) {
		t.Errorf("ParseHeader offset = %d; want %d", n, len(short))
	}
	if want := wantHeader(f); *h != want {
		t.Errorf("ParseHeader = %+v; want %+v", *h, want)
	}
}

func TestHeaderCopyIsIndependent(t *testing.T) {
	h, _, err := ParseHeader(kdbxtest.Default().Header())
	if err != nil {
		t.Fatal("ParseHeader:", err)
	}
	c := *h
	c.MasterSeed[0] = 0xff
	if h.MasterSeed[0] == 0xff {
		t.Error("modifying a Header copy changed the original")
	}
}

func FuzzParseHeader(f *testing.F) {
	f.Add(kdbxtest.Default().Header())
	fx := kdbxtest.Default()
	fx.Comment = []byte("comment")
	f.Add(fx.Header())
	f.Add([]byte{})
	f.Fuzz(func(t *testing.T, b []byte) {
		h, n, err := ParseHeader(b)
		if err != nil {
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("ParseHeader error %v is not a *FormatError", err)
			}
			return
		}
		if n < 12 || n > len(b) {
			t.Fatalf("ParseHeader offset = %d; want in [12, %d]", n, len(b))
		}
		if h.TransformRounds == 0 {
			t.Fatal("ParseHeader accepted zero transform rounds")
		}
	})
}
