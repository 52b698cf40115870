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
	"io"

	"github.com/rs/zerolog"
	"zombiezen.com/go/kdbx/pkg/kdbxcrypt"
)

// DefaultMaxPayloadSize is the default bound on the decompressed payload.
const DefaultMaxPayloadSize = 512 << 20

// Options is the set of parameters for opening a database.
// Nil is treated the same as the zero value.
type Options struct {
	// Password is an optional textual password.  It is used exactly as
	// given, without normalization.
	Password string

	// KeyFile is an optional key file.  See kdbxcrypt.ReadKeyFile.
	KeyFile io.Reader

	// MaxTransformRounds bounds the key transformation rounds that the
	// database header may request.  If zero,
	// kdbxcrypt.DefaultMaxTransformRounds is used.
	MaxTransformRounds uint64

	// MaxPayloadSize bounds the size of the decompressed payload.
	// If zero, DefaultMaxPayloadSize is used.
	MaxPayloadSize int64

	// Logger receives debug events.  Secrets are never logged.
	// Defaults to a disabled logger.
	Logger *zerolog.Logger
}

func (opts *Options) getPassword() string {
	if opts == nil {
		return ""
	}
	return opts.Password
}

func (opts *Options) getKeyFileHash() ([]byte, error) {
	if opts == nil || opts.KeyFile == nil {
		return nil, nil
	}
	return kdbxcrypt.ReadKeyFile(opts.KeyFile)
}

func (opts *Options) getMaxTransformRounds() uint64 {
	if opts == nil || opts.MaxTransformRounds == 0 {
		return kdbxcrypt.DefaultMaxTransformRounds
	}
	return opts.MaxTransformRounds
}

func (opts *Options) getMaxPayloadSize() int64 {
	if opts == nil || opts.MaxPayloadSize <= 0 {
		return DefaultMaxPayloadSize
	}
	return opts.MaxPayloadSize
}

var nopLogger = zerolog.Nop()

func (opts *Options) logger() *zerolog.Logger {
	if opts == nil || opts.Logger == nil {
		return &nopLogger
	}
	return opts.Logger
}
