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

package main

import (
	"errors"

	"zombiezen.com/go/kdbx/pkg/kdbx"
)

// Exit codes
const (
	exitOK          = 0
	exitOther       = 1
	exitIO          = 2
	exitFormat      = 3
	exitWrongKey    = 4
	exitUnsupported = 5
	exitDecompress  = 6
)

func userErrorMessage(e error) string {
	ue, ok := e.(interface {
		UserError() string
	})
	if !ok {
		return ""
	}
	return ue.UserError()
}

// classify maps an error to an exit code and a one-line message.
// Unsupported features are checked before the generic format error
// because an unsupported cipher is reported as a *kdbx.FormatError.
func classify(e error) (code int, msg string) {
	if msg := userErrorMessage(e); msg != "" {
		return exitOther, msg
	}
	var kfErr *kdbx.KeyFileError
	var ioErr *kdbx.IOError
	var fmtErr *kdbx.FormatError
	switch {
	case errors.Is(e, kdbx.ErrKeyFileHash):
		return exitIO, "invalid key file: key data does not match its hash"
	case errors.As(e, &kfErr):
		return exitIO, "cannot read key file: " + kfErr.Err.Error()
	case errors.As(e, &ioErr):
		return exitIO, "cannot read " + describePath(ioErr.Path) + ": " + ioErr.Err.Error()
	case errors.Is(e, kdbx.ErrUnsupportedVersion):
		return exitUnsupported, "unsupported file version: only KDBX 3.x databases can be opened"
	case errors.Is(e, kdbx.ErrUnsupportedCipher):
		return exitUnsupported, "unsupported cipher"
	case errors.Is(e, kdbx.ErrRoundsTooLarge):
		return exitUnsupported, "database requests too many key transformation rounds (see --max-rounds)"
	case errors.Is(e, kdbx.ErrDecompressionFailed):
		return exitDecompress, "payload could not be decompressed"
	case errors.As(e, &fmtErr):
		return exitFormat, "malformed database: " + fmtErr.Error()
	case errors.Is(e, kdbx.ErrDecryptionFailed), errors.Is(e, kdbx.ErrAuthenticationFailed):
		return exitWrongKey, "wrong password or key file, or the database is corrupt"
	default:
		return exitOther, e.Error()
	}
}

func describePath(path string) string {
	if path == "" {
		return "database"
	}
	return path
}

type userError struct {
	msg string
	err error
}

func (ue userError) Error() string {
	if ue.err == nil {
		return ue.msg
	}
	return ue.err.Error()
}

func (ue userError) UserError() string {
	return ue.msg
}

func (ue userError) Unwrap() error {
	return ue.err
}
