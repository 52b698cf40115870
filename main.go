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

// kdbx opens a KeePass 2 database and describes it.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"zombiezen.com/go/kdbx/pkg/kdbx"
	"zombiezen.com/go/kdbx/pkg/kdbxcrypt"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, readPassword))
}

// app holds the command's flags and I/O.
type app struct {
	stdout, stderr io.Writer
	prompt         func(prompt string) ([]byte, error)

	file      string
	password  string
	keyFile   string
	verbose   bool
	jsonOut   bool
	payload   bool
	maxRounds uint64
}

// run executes the command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer, prompt func(string) ([]byte, error)) int {
	a := &app{stdout: stdout, stderr: stderr, prompt: prompt}
	cmd := a.command()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.Execute(); err != nil {
		code, msg := classify(err)
		fmt.Fprintln(stderr, "kdbx: "+msg)
		return code
	}
	return exitOK
}

func (a *app) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kdbx [flags] [FILE]",
		Short: "Open a KeePass 2 (KDBX 3.x) database",
		Long: `kdbx decrypts a KeePass 2 database, verifies it and describes its header.
With --payload it writes the decrypted XML document to standard output instead.

If no password is given on the command line, kdbx prompts for one.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd, args)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&a.file, "file", "f", "", "path to database")
	f.StringVarP(&a.password, "password", "p", "", "database password (prompted for if omitted)")
	f.StringVarP(&a.keyFile, "keyfile", "k", "", "path to key file")
	f.BoolVarP(&a.verbose, "verbose", "v", false, "log diagnostic detail to stderr")
	f.BoolVar(&a.jsonOut, "json", false, "describe the database as JSON")
	f.BoolVar(&a.payload, "payload", false, "write the decrypted payload to stdout")
	f.Uint64Var(&a.maxRounds, "max-rounds", kdbxcrypt.DefaultMaxTransformRounds, "refuse databases that need more key transformation rounds")
	cmd.MarkFlagsMutuallyExclusive("json", "payload")
	return cmd
}

func (a *app) open(cmd *cobra.Command, args []string) error {
	path, err := a.path(args)
	if err != nil {
		return err
	}
	log := a.logger()

	opts := &kdbx.Options{
		MaxTransformRounds: a.maxRounds,
		Logger:             &log,
	}
	if cmd.Flags().Changed("password") {
		opts.Password = a.password
	} else {
		pw, err := a.prompt("Password for " + path + ": ")
		if err != nil {
			return userError{msg: "cannot read password: " + err.Error(), err: err}
		}
		opts.Password = string(pw)
		zeroBytes(pw)
	}
	if a.keyFile != "" {
		kf, err := os.Open(a.keyFile)
		if err != nil {
			return &kdbx.KeyFileError{Err: err}
		}
		defer kf.Close()
		opts.KeyFile = kf
	}

	log.Debug().Str("file", path).Bool("key_file", a.keyFile != "").Msg("opening database")
	start := time.Now()
	db, err := kdbx.OpenFile(path, opts)
	if err != nil {
		log.Debug().Err(err).Dur("elapsed", time.Since(start)).Msg("open failed")
		return err
	}
	defer db.Wipe()
	log.Debug().Dur("elapsed", time.Since(start)).Msg("database opened")

	if a.payload {
		_, err := db.WriteTo(a.stdout)
		return err
	}
	d := describe(path, db)
	if a.jsonOut {
		return d.writeJSON(a.stdout)
	}
	return d.writeText(a.stdout)
}

func (a *app) path(args []string) (string, error) {
	switch {
	case len(args) == 1 && a.file != "" && args[0] != a.file:
		return "", userError{msg: "database given both as --file and as an argument"}
	case len(args) == 1:
		return args[0], nil
	case a.file != "":
		return a.file, nil
	default:
		return "", userError{msg: "no database file given (use --file or pass a path)"}
	}
}

// logger returns a console logger on stderr.  Debug events are shown
// only with --verbose.
func (a *app) logger() zerolog.Logger {
	level := zerolog.WarnLevel
	if a.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        a.stderr,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}).Level(level).With().Timestamp().Logger()
}
