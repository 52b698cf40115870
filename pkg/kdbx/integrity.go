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

import "crypto/subtle"

// verifyStartBytes checks that plain begins with want.
func verifyStartBytes(plain []byte, want [32]byte) error {
	if len(plain) < len(want) {
		return &IntegrityError{Err: ErrAuthenticationFailed}
	}
	if subtle.ConstantTimeCompare(plain[:len(want)], want[:]) != 1 {
		return &IntegrityError{Err: ErrAuthenticationFailed}
	}
	return nil
}
