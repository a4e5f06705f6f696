package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

// LineOutputValue is a flag value selecting where received device lines are written.
type LineOutputValue struct {
	path   string
	append bool
}

func NewLineOutputValue() *LineOutputValue {
	return &LineOutputValue{}
}

func (o *LineOutputValue) String() string {
	if o.path == "" {
		return "(stdout)"
	}
	return o.path
}

func (o *LineOutputValue) Set(value string) error {
	o.path = value
	return nil
}

func (o *LineOutputValue) Reset() {
	o.path = ""
	o.append = false
}

func (o *LineOutputValue) Type() string {
	return "file"
}

type stdoutCloser struct {
	io.Writer
}

func (stdoutCloser) Close() error { return nil }

// Open returns the selected file, truncated unless appending. Without a file, lines go to stdout,
// which is left open on Close.
func (o *LineOutputValue) Open() (io.WriteCloser, error) {
	if o.path == "" {
		return stdoutCloser{Writer: os.Stdout}, nil
	}
	flag := os.O_CREATE | os.O_WRONLY
	if o.append {
		flag |= os.O_APPEND
	} else {
		flag |= os.O_TRUNC
	}
	return os.OpenFile(o.path, flag, os.FileMode(0644))
}

var lineOutputValue = NewLineOutputValue()

func AddLineOutputFlags(cmd *cobra.Command) {
	cmd.Flags().VarP(lineOutputValue, "output", "o", "Write received device lines to this file instead of stdout")
	cmd.Flags().BoolVar(&lineOutputValue.append, "append", false, "Append to the output file instead of truncating it")
}

func init() {
	resetFlagsFns = append(resetFlagsFns, func() {
		lineOutputValue.Reset()
	})
}
