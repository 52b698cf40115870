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
	"errors"

	"zombiezen.com/go/kdbx/pkg/bytecursor"
	"zombiezen.com/go/kdbx/pkg/kdbxcrypt"
)

// Format errors
var (
	ErrInvalidSignature    = errors.New("kdbx: invalid signature")
	ErrUnsupportedVersion  = errors.New("kdbx: unsupported version")
	ErrTruncated           = bytecursor.ErrTruncated
	ErrUnknownField        = errors.New("kdbx: unknown header field")
	ErrMissingField        = errors.New("kdbx: missing header field")
	ErrDuplicateField      = errors.New("kdbx: duplicate header field")
	ErrInvalidFieldLength  = errors.New("kdbx: invalid header field length")
	ErrInvalidFieldValue   = errors.New("kdbx: invalid header field value")
	ErrDecompressionFailed = errors.New("kdbx: decompression failed")
)

// ErrAuthenticationFailed is reported when the payload does not begin
// with the header's stream start bytes or a payload block fails its
// hash.  It reads the same as kdbxcrypt.ErrDecryptionFailed.
var ErrAuthenticationFailed = errors.New(kdbxcrypt.ErrDecryptionFailed.Error())

// Crypto errors, re-exported for callers that only import this package.
var (
	ErrUnsupportedCipher = kdbxcrypt.ErrUnsupportedCipher
	ErrRoundsTooLarge    = kdbxcrypt.ErrRoundsTooLarge
	ErrDecryptionFailed  = kdbxcrypt.ErrDecryptionFailed
	ErrKeyFileHash       = kdbxcrypt.ErrKeyFileHash
)

// An IOError is returned when the database could not be read.
type IOError struct {
	Path string // empty when opened from a reader
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return "kdbx: read: " + e.Err.Error()
	}
	return "kdbx: read " + e.Path + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// A KeyFileError is returned when Options.KeyFile could not be read
// or holds an XML key that fails its checksum.
type KeyFileError struct {
	Err error
}

func (e *KeyFileError) Error() string {
	return "kdbx: key file: " + e.Err.Error()
}

func (e *KeyFileError) Unwrap() error {
	return e.Err
}

// A FormatError describes a malformed or unsupported database file.
type FormatError struct {
	Field string // header field name, or empty
	Err   error
}

func (e *FormatError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + " (" + e.Field + ")"
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// A CryptoError is returned when the payload could not be decrypted.
type CryptoError struct {
	Err error
}

func (e *CryptoError) Error() string {
	return e.Err.Error()
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// An IntegrityError is returned when decrypted data fails verification.
// Its message never says which check failed.
type IntegrityError struct {
	Err error
}

func (e *IntegrityError) Error() string {
	return ErrAuthenticationFailed.Error()
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}

// Is reports every IntegrityError as ErrAuthenticationFailed.
func (e *IntegrityError) Is(target error) bool {
	return target == ErrAuthenticationFailed
}

func formatError(field string, err error) error {
	return &FormatError{Field: field, Err: err}
}
