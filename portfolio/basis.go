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

// Lot is a single acquisition of shares at a price, on a given replay day. Lots are consumed
// FIFO on removal; this is a deliberate simplification over HIFO/specific-lot-ID selection --
// the TWR identity holds regardless of which lot is sold (SPEC_FULL.md §4.A).
type Lot struct {
	Ticker        string
	AcquiredDay   int
	Shares        float64
	PricePerShare float64
}

// BasisLedger maintains per-ticker FIFO lot queues and answers average/total basis queries. It
// is owned exclusively by one replay for the replay's lifetime.
type BasisLedger struct {
	lots map[string][]*Lot
}

// NewBasisLedger returns an empty ledger.
func NewBasisLedger() *BasisLedger {
	return &BasisLedger{lots: make(map[string][]*Lot)}
}

// Add appends a new lot at the back of ticker's queue, since removal is FIFO from the front
// (oldest first).
func (b *BasisLedger) Add(ticker string, day int, shares, pricePerShare float64) {
	if shares == 0 {
		return
	}
	b.lots[ticker] = append(b.lots[ticker], &Lot{
		Ticker:        ticker,
		AcquiredDay:   day,
		Shares:        shares,
		PricePerShare: pricePerShare,
	})
}

// Remove consumes shares from the front of ticker's lot queue. If the request exceeds
// available shares, it removes everything available and returns the shortfall (a positive
// number of shares that could not be covered) -- callers use this to detect short positions
// during reconciliation. Remove on an unknown ticker or with negative shares fails with
// ErrInvalidBasisOperation.
func (b *BasisLedger) Remove(ticker string, shares float64) (shortfall float64, err error) {
	if shares < 0 {
		return 0, wrapTransactionErr(ticker, ErrInvalidBasisOperation)
	}
	queue, ok := b.lots[ticker]
	if !ok {
		return shares, wrapTransactionErr(ticker, ErrInvalidBasisOperation)
	}

	remaining := shares
	idx := 0
	for idx < len(queue) && remaining > 0 {
		lot := queue[idx]
		if lot.Shares <= remaining {
			remaining -= lot.Shares
			idx++
			continue
		}
		lot.Shares -= remaining
		remaining = 0
	}
	b.lots[ticker] = queue[idx:]
	return remaining, nil
}

// Basis returns the share-weighted average price per share across ticker's remaining lots, or
// 0 if there are none.
func (b *BasisLedger) Basis(ticker string) float64 {
	queue := b.lots[ticker]
	var totalShares, totalValue float64
	for _, lot := range queue {
		totalShares += lot.Shares
		totalValue += lot.Shares * lot.PricePerShare
	}
	if totalShares == 0 {
		return 0
	}
	return totalValue / totalShares
}

// ApplySplit multiplies every remaining lot's share count by factor and divides its
// price-per-share by factor, preserving each lot's total basis across a split.
func (b *BasisLedger) ApplySplit(ticker string, factor float64) {
	for _, lot := range b.lots[ticker] {
		lot.Shares *= factor
		lot.PricePerShare /= factor
	}
}

// TotalBasis returns Σ shares·price over ticker's remaining lots.
func (b *BasisLedger) TotalBasis(ticker string) float64 {
	var total float64
	for _, lot := range b.lots[ticker] {
		total += lot.Shares * lot.PricePerShare
	}
	return total
}
