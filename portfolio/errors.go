// Copyright 2021-2025
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package portfolio

import (
	"errors"
	"fmt"
)

// ErrDeterminismViolation is the debug-only assertion of spec.md §7: the same Transaction
// sequence plus the same price oracle snapshot MUST yield bit-identical return series across
// runs (spec.md §5). It is raised only by AssertDeterministic, never by production replay code.
var ErrDeterminismViolation = errors.New("determinism violation")

// AssertDeterministic compares two Results produced by replaying the same inputs and returns
// ErrDeterminismViolation, wrapping the first mismatching day, if they differ beyond float64
// exact equality. It exists for tests only -- production replay paths never call it.
func AssertDeterministic(a, b *Result) error {
	if len(a.Measurements) != len(b.Measurements) {
		return fmt.Errorf("%w: %d measurements vs %d", ErrDeterminismViolation, len(a.Measurements), len(b.Measurements))
	}
	for i := range a.Measurements {
		ma, mb := a.Measurements[i], b.Measurements[i]
		if !ma.Date.Equal(mb.Date) ||
			ma.SplitReturn != mb.SplitReturn ||
			ma.DividendReturn != mb.DividendReturn ||
			ma.FeeReturn != mb.FeeReturn ||
			ma.TotalValue != mb.TotalValue {
			return fmt.Errorf("%w: day %d: %+v vs %+v", ErrDeterminismViolation, i, ma, mb)
		}
	}
	return nil
}

// Sentinel errors for the return-computation core's error taxonomy. They are wrapped with
// transaction context by the caller (the replay driver) rather than carrying that context
// themselves, so callers can still match with errors.Is.
var (
	// ErrInvalidTwrInput is raised by the TWR engine for negative shares/prices/amounts or a
	// setMark call that would overwrite a nonzero mark with zero. Fatal to the replay.
	ErrInvalidTwrInput = errors.New("invalid twr input")

	// ErrInvalidBasisOperation is raised by the basis ledger when removing from an unknown
	// ticker or with a negative share count. Fatal to the replay.
	ErrInvalidBasisOperation = errors.New("invalid basis operation")

	// ErrMissingPrice is recoverable: the price oracle returned "missing" and no prior mark
	// exists for the ticker. The replay carries a zero mark forward and flags the day.
	ErrMissingPrice = errors.New("missing price")
)

// TransactionError annotates a core error with the offending transaction's unique ID, per the
// propagation rule in the error handling design: the engine raises immediately, the driver
// annotates and re-raises.
type TransactionError struct {
	UniqueID string
	Err      error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s: %s", e.UniqueID, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// wrapTransactionErr annotates err with uniqueID, or returns nil if err is nil.
func wrapTransactionErr(uniqueID string, err error) error {
	if err == nil {
		return nil
	}
	return &TransactionError{UniqueID: uniqueID, Err: err}
}
