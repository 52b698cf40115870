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
	"io"

	"github.com/klauspost/compress/gzip"
)

var errPayloadTooLarge = errors.New("payload exceeds size limit")

// maybeInflate decompresses b according to c.  Uncompressed input is
// returned as-is.  Inflating to more than limit bytes is an error.
func maybeInflate(b []byte, c Compression, limit int64) ([]byte, error) {
	switch c {
	case NoCompression:
		return b, nil
	case GzipCompression:
		out, err := gunzip(b, limit)
		if err != nil {
			return nil, formatError(fieldCompression.String(), decompressionError{err})
		}
		return out, nil
	default:
		return nil, formatError(fieldCompression.String(), ErrInvalidFieldValue)
	}
}

func gunzip(b []byte, limit int64) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	zr.Multistream(false)
	var out bytes.Buffer
	n, err := io.Copy(&out, io.LimitReader(zr, limit+1))
	if err != nil {
		return nil, err
	}
	if n > limit {
		return nil, errPayloadTooLarge
	}
	return out.Bytes(), nil
}

// decompressionError keeps the underlying gzip error in the message
// while matching ErrDecompressionFailed.
type decompressionError struct {
	err error
}

func (e decompressionError) Error() string {
	return ErrDecompressionFailed.Error() + ": " + e.err.Error()
}

func (e decompressionError) Unwrap() []error {
	return []error{ErrDecompressionFailed, e.err}
}
