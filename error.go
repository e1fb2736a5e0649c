// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

import (
	"fmt"

	"github.com/dsnet/brotli/internal/errors"
)

// The internal implementation of this package conveys errors by panicking;
// every public API boundary recovers them with errors.Recover. Only errors
// raised through errors.Panic unwind this way; other panics propagate.

var (
	// ErrClosed is reported when an operation is performed on a closed handler.
	ErrClosed = errorf(errors.Closed, "")

	// ErrCorrupt is reported when the input stream is not a valid
	// Brotli stream.
	ErrCorrupt = errorf(errors.Corrupted, "")
)

func errorf(c int, f string, a ...interface{}) error {
	return errors.Error{Code: c, Pkg: "brotli", Msg: fmt.Sprintf(f, a...)}
}

func panicf(c int, f string, a ...interface{}) {
	errors.Panic(errorf(c, f, a...))
}

// errWrap converts a lower-level errors.Error to be an error of this package.
// Errors of other types are passed through as is.
func errWrap(err error, replaceCode int) error {
	if cerr, ok := err.(errors.Error); ok {
		if !errors.IsInternal(cerr) {
			cerr.Code = replaceCode
		}
		cerr.Pkg = "brotli"
		err = cerr
	}
	return err
}
