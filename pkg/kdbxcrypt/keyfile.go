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

package kdbxcrypt

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// ErrKeyFileHash is returned for a version 2 XML key file whose data
// does not match its embedded checksum.
var ErrKeyFileHash = errors.New("kdbx: key file data does not match its hash")

// MaxXMLKeyFileSize is the largest key file that is inspected for an
// XML key.  Larger files are always hashed.
const MaxXMLKeyFileSize = 1 << 20

// ReadKeyFile reads a key file and returns its hash for use in a Key.
//
// KeePass 2 XML key files (versions 1.0 and 2.0) contribute their
// embedded key.  Otherwise a file of exactly 32 bytes is used as-is,
// a file of 64 hex digits is decoded, and anything else is hashed.
// At most MaxXMLKeyFileSize+1 bytes are buffered; the rest of a
// larger file is streamed into the hash.
func ReadKeyFile(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxXMLKeyFileSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxXMLKeyFileSize {
		h := sha256.New()
		h.Write(data)
		if _, err := io.Copy(h, r); err != nil {
			return nil, err
		}
		return h.Sum(nil), nil
	}
	if k, ok, err := parseXMLKeyFile(data); ok || err != nil {
		return k, err
	}
	switch len(data) {
	case 32:
		return data, nil
	case 64:
		h := make([]byte, hex.DecodedLen(len(data)))
		if _, err := hex.Decode(h, data); err == nil {
			return h, nil
		}
	}
	s := sha256.Sum256(data)
	return s[:], nil
}

type xmlKeyFile struct {
	XMLName xml.Name `xml:"KeyFile"`
	Meta    struct {
		Version string `xml:"Version"`
	} `xml:"Meta"`
	Key struct {
		Data struct {
			Hash  string `xml:"Hash,attr"`
			Value string `xml:",chardata"`
		} `xml:"Data"`
	} `xml:"Key"`
}

// parseXMLKeyFile reports ok = false if data is not an XML key file.
func parseXMLKeyFile(data []byte) (key []byte, ok bool, err error) {
	if !bytes.Contains(data, []byte("<KeyFile")) {
		return nil, false, nil
	}
	var kf xmlKeyFile
	if xml.Unmarshal(data, &kf) != nil {
		return nil, false, nil
	}
	value := strings.Join(strings.Fields(kf.Key.Data.Value), "")
	switch {
	case strings.HasPrefix(kf.Meta.Version, "1."):
		key, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return nil, false, nil
		}
		return key, true, nil
	case strings.HasPrefix(kf.Meta.Version, "2."):
		key, err := hex.DecodeString(value)
		if err != nil {
			return nil, false, nil
		}
		if kf.Key.Data.Hash != "" {
			want, err := hex.DecodeString(kf.Key.Data.Hash)
			sum := sha256.Sum256(key)
			if err != nil || len(want) > len(sum) || subtle.ConstantTimeCompare(sum[:len(want)], want) != 1 {
				return nil, true, ErrKeyFileHash
			}
		}
		return key, true, nil
	default:
		return nil, false, nil
	}
}
