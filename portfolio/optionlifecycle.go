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

const optionStrikeTolerance = 1e-6

// dayKey groups transactions by underlying ticker and calendar day -- the scan scope spec.md
// §4.C's resolver searches within.
type dayKey struct {
	ticker string
	day    string // trx.Date.Format("2006-01-02")
}

// ResolveOptionLifecycle reclassifies ambiguous close-side option transactions (buyToClose,
// sellToClose with no price or total -- a broker's lifecycle event rather than a market fill)
// into exercise/expire, per spec.md §4.C. It is a pure function: trxs is not mutated in place;
// the returned slice has the same length and order, with Kind/Auto possibly changed on the
// ambiguous entries.
//
// Exercise and assign collapse to a single Exercise kind, conservatively -- spec.md §4.C notes
// the two are economically identical to the TWR engine (they are both a close at the strike
// price) and the distinction matters only for tax reporting, which is out of scope.
func ResolveOptionLifecycle(trxs []*Transaction) []*Transaction {
	out := make([]*Transaction, len(trxs))
	byDay := make(map[dayKey][]int)

	for i, trx := range trxs {
		cp := *trx
		out[i] = &cp

		key := dayKey{ticker: trx.Ticker, day: trx.Date.Format("2006-01-02")}
		byDay[key] = append(byDay[key], i)
	}

	for i, trx := range out {
		if !trx.IsCloseSideOption() || trx.HasPriceOrTotal() {
			continue
		}
		resolveOne(out, byDay[dayKey{ticker: trx.Ticker, day: trx.Date.Format("2006-01-02")}], i)
	}

	return out
}

// resolveOne reclassifies candidate (index i into trxs) per spec.md §4.C steps 1-5: scan every
// same-ticker, same-day transaction whose price matches the candidate's strike within
// optionStrikeTolerance, accumulate buys/sells in shares, then compare against the 100-share
// contract multiplier.
func resolveOne(trxs []*Transaction, sameDayIdxs []int, i int) {
	candidate := trxs[i]
	var strike float64
	if candidate.OptionStrike != nil {
		strike = *candidate.OptionStrike
	}

	var buyShares, sellShares float64
	for _, j := range sameDayIdxs {
		if j == i {
			continue
		}
		trx := trxs[j]
		if !trx.HasPriceOrTotal() {
			continue
		}
		if absf(trx.PriceValue()-strike) >= optionStrikeTolerance {
			continue
		}
		switch trx.Kind {
		case Buy:
			buyShares += trx.SharesValue()
		case Sell:
			sellShares += trx.SharesValue()
		}
	}

	contractShares := candidate.SharesValue() * 100

	// Only sellToClose put/call are special-cased (spec.md §4.C steps 3-4); every other
	// candidate, including buyToClose, falls through to expire per step 5 -- the resolver
	// does not attempt to disambiguate a short-option assignment from a buyToClose fill.
	var exercised bool
	switch {
	case candidate.Kind == SellToClose && candidate.OptionPutCall == OptionPut:
		exercised = sellShares >= contractShares
	case candidate.Kind == SellToClose && candidate.OptionPutCall == OptionCall:
		exercised = buyShares >= contractShares
	}

	if exercised {
		candidate.Kind = Exercise
	} else {
		candidate.Kind = Expire
	}
	candidate.Auto = true
}
