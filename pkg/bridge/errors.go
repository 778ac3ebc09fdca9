// Copyright 2026 Ewout Prangsma
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
//
// Author Ewout Prangsma
//

package bridge

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	UnknownBridgeTypeError = errors.New("unknown bridge type")
	LineBusyError          = errors.New("line busy")
	InvalidLineError       = errors.New("invalid line")
	LineClosedError        = errors.New("line closed")

	maskAny = errors.WithStack
)

// IOError is returned for every failure of the underlying line I/O.
// The original error is returned by Cause.
type IOError struct {
	// Operation that failed (open|read|write|release)
	Op     string
	Chip   string
	Offset int
	Err    error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s:%d failed: %v", e.Op, e.Chip, e.Offset, e.Err)
}

// Cause returns the error reported by the line library.
func (e *IOError) Cause() error { return e.Err }

// Unwrap supports errors.Is/As on the line library error.
func (e *IOError) Unwrap() error { return e.Err }

// newIOError wraps the given error in an IOError.
// Returns nil when err is nil.
func newIOError(op string, key lineKey, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Chip: key.chip, Offset: key.offset, Err: err}
}

// IsIOError returns true when the given error is (or wraps) an IOError.
func IsIOError(err error) bool {
	var ioErr *IOError
	return errors.As(err, &ioErr)
}
