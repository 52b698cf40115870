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
	"fmt"
	"os"
	"runtime"

	"golang.org/x/term"
)

// readPassword prompts on stderr and reads a line without echo.  When
// stdin is not a terminal, it reads from the controlling terminal.
func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)

	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		return term.ReadPassword(fd)
	}
	tty, err := os.Open("/dev/tty")
	if err != nil {
		if runtime.GOOS == "windows" {
			return nil, errors.New("stdin is not a terminal; pass the password with --password")
		}
		return nil, fmt.Errorf("stdin is not a terminal and /dev/tty is unavailable: %w", err)
	}
	defer tty.Close()
	return term.ReadPassword(int(tty.Fd()))
}

// zeroBytes overwrites b with zeros.
func zeroBytes(b []byte) {
	clear(b)
	runtime.KeepAlive(b)
}
