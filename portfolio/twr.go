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
	"github.com/rs/zerolog/log"
)

// weightedReturn is one (dollar amount, multiplier) tuple contributing to a day's blended
// return. Weighting by cash amount blends dollar-weighted returns *within* the day only; the
// day-to-day chain (splitReturn) stays time-weighted.
type weightedReturn struct {
	weight     float64
	multiplier float64
}

// dayAccumulators are cleared at each BeginDay and populated by the intraday event calls.
type dayAccumulators struct {
	cashIn, cashOut               map[string]float64
	sharesIn, sharesOut           map[string]float64
	cashInShort, cashOutShort     map[string]float64
	sharesInShort, sharesOutShort map[string]float64
	stockDividendShares           map[string]float64
	dividends                     float64
	fees                          float64
	adjustment                    float64
}

func newDayAccumulators() *dayAccumulators {
	return &dayAccumulators{
		cashIn:              make(map[string]float64),
		cashOut:             make(map[string]float64),
		sharesIn:            make(map[string]float64),
		sharesOut:           make(map[string]float64),
		cashInShort:         make(map[string]float64),
		cashOutShort:        make(map[string]float64),
		sharesInShort:       make(map[string]float64),
		sharesOutShort:      make(map[string]float64),
		stockDividendShares: make(map[string]float64),
	}
}

// TwrEngine is the day-indexed time-weighted-return state machine described in SPEC_FULL.md
// §4.B. It is created empty, advanced one day at a time via BeginDay/...*/EndDay, and owned
// exclusively by a single replay.
type TwrEngine struct {
	day int

	shares          map[string]float64
	sharesShort     map[string]float64
	prices          map[string]float64
	yesterdayPrices map[string]float64

	basis *BasisLedger

	adjustBasises   map[string]float64
	totalAdjustment float64

	lastValue     float64
	haveLastValue bool

	splitReturn float64
	dividendMod float64
	feeMod      float64

	yesterdayValue     float64
	haveYesterdayValue bool

	acc *dayAccumulators

	// everHeldTicker mirrors the source's self.ticker freeze: it latches true on the first
	// AddShares/ShortShares/StockDividendShares call, and never resets. A replay that never
	// holds any ticker -- pure cash, fees/expenses only -- stays false, which is the fee
	// formula's signal to treat the whole engine as the __CASH__ position (step (m)).
	everHeldTicker bool

	// MissingPriceDays is not written by the engine; the replay driver records tickers with no
	// quote on DailyMeasurement.MissingPrices instead.
	MissingPriceDays []int
}

// NewTwrEngine returns an empty engine, ready for day 0's BeginDay.
func NewTwrEngine() *TwrEngine {
	return &TwrEngine{
		shares:          make(map[string]float64),
		sharesShort:     make(map[string]float64),
		prices:          make(map[string]float64),
		yesterdayPrices: make(map[string]float64),
		basis:           NewBasisLedger(),
		adjustBasises:   make(map[string]float64),
		splitReturn:     1.0,
		dividendMod:     1.0,
		feeMod:          1.0,
	}
}

// BeginDay clears the per-day accumulators. It must be paired with exactly one EndDay. Share
// movements from AddShares/RemoveShares/ShortShares/CoverShares/StockDividendShares wait in the
// accumulators until EndDay, but the intraday calls are not fully deferred: marks set by the
// mutators and SetMark, basis adjustments, AddAdjustment's value bump, Split, and
// CloseAllShares take effect on the engine immediately, so a BeginDay with no EndDay does not
// leave the engine unchanged.
func (e *TwrEngine) BeginDay() {
	e.acc = newDayAccumulators()
}

// AddShares opens or adds to a long position. shares and price must be >= 0.
func (e *TwrEngine) AddShares(ticker string, shares, price float64) error {
	if shares < 0 {
		return wrapTransactionErr(ticker, ErrInvalidTwrInput)
	}
	if price < 0 {
		return wrapTransactionErr(ticker, ErrInvalidTwrInput)
	}
	if shares == 0 {
		return nil
	}
	e.everHeldTicker = true
	if _, ok := e.prices[ticker]; price != 0 || !ok {
		e.prices[ticker] = price
	}
	if _, ok := e.yesterdayPrices[ticker]; !ok {
		e.yesterdayPrices[ticker] = price
	}
	e.acc.cashIn[ticker] += shares * price
	e.acc.sharesIn[ticker] += shares
	return nil
}

// RemoveShares closes or reduces a long position. shares and price must be >= 0.
func (e *TwrEngine) RemoveShares(ticker string, shares, price float64) error {
	if shares < 0 {
		return wrapTransactionErr(ticker, ErrInvalidTwrInput)
	}
	if price < 0 {
		return wrapTransactionErr(ticker, ErrInvalidTwrInput)
	}
	if shares == 0 {
		return nil
	}
	e.setMarkUnchecked(ticker, price)
	e.acc.cashOut[ticker] += shares * price
	e.acc.sharesOut[ticker] += shares
	return nil
}

// StockDividendShares records shares added by a stock dividend or split -- it changes share
// count but contributes no return on its own.
func (e *TwrEngine) StockDividendShares(ticker string, shares float64) {
	if shares == 0 {
		return
	}
	e.everHeldTicker = true
	e.acc.stockDividendShares[ticker] += shares
}

// ShortShares opens or adds to a short position. shares and price must be >= 0.
func (e *TwrEngine) ShortShares(ticker string, shares, price float64) error {
	if shares < 0 {
		return wrapTransactionErr(ticker, ErrInvalidTwrInput)
	}
	if price < 0 {
		return wrapTransactionErr(ticker, ErrInvalidTwrInput)
	}
	e.everHeldTicker = true
	if price != 0 {
		e.prices[ticker] = price
	}
	e.acc.cashInShort[ticker] += shares * price
	e.acc.sharesInShort[ticker] += shares
	return nil
}

// CoverShares closes or reduces a short position. shares and price must be >= 0.
func (e *TwrEngine) CoverShares(ticker string, shares, price float64) error {
	if shares < 0 {
		return wrapTransactionErr(ticker, ErrInvalidTwrInput)
	}
	if price < 0 {
		return wrapTransactionErr(ticker, ErrInvalidTwrInput)
	}
	e.prices[ticker] = price
	e.acc.cashOutShort[ticker] += shares * price
	e.acc.sharesOutShort[ticker] += shares
	return nil
}

// AddDividend records a cash dividend. amount must be >= 0.
func (e *TwrEngine) AddDividend(amount float64) error {
	if amount < 0 {
		return ErrInvalidTwrInput
	}
	e.acc.dividends += amount
	return nil
}

// AddFee records a fee or expense. amount must be >= 0.
func (e *TwrEngine) AddFee(amount float64) error {
	if amount < 0 {
		return ErrInvalidTwrInput
	}
	e.acc.fees += amount
	return nil
}

// AddAdjustment records a cash-position value adjustment (ticker == CashTicker use case).
func (e *TwrEngine) AddAdjustment(amount float64) {
	e.totalAdjustment += amount
	e.acc.adjustment += amount
}

// AdjustBasis records a basis bump (spinoff, return of capital) for ticker. It does not itself
// change the share count or cash; EndDay folds it into splitReturn so the value drop the
// adjustment causes does not register as a loss.
func (e *TwrEngine) AdjustBasis(ticker string, amount float64) {
	e.adjustBasises[ticker] += amount
}

// AddDividendReinvest is addDividend(shares*price) followed by addShares(ticker, shares,
// price), per spec.md §4.B.
func (e *TwrEngine) AddDividendReinvest(ticker string, shares, price float64) error {
	if err := e.AddDividend(shares * price); err != nil {
		return err
	}
	return e.AddShares(ticker, shares, price)
}

// SetMark records ticker's end-of-day reference price. A nonzero mark may never be silently
// overwritten with zero -- the engine preserves the last nonzero mark (ErrInvalidTwrInput
// otherwise).
func (e *TwrEngine) SetMark(ticker string, price float64) error {
	if price < 0 {
		return wrapTransactionErr(ticker, ErrInvalidTwrInput)
	}
	if price == 0 {
		if existing, ok := e.prices[ticker]; ok && existing != 0 {
			return wrapTransactionErr(ticker, ErrInvalidTwrInput)
		}
	}
	e.prices[ticker] = price
	return nil
}

// setMarkUnchecked is used by mutators that legitimately pass a same-day execution price
// (which may legitimately be lower than, never forbidden relative to, the previous mark).
func (e *TwrEngine) setMarkUnchecked(ticker string, price float64) {
	e.prices[ticker] = price
}

// Split multiplies ticker's share count (long and short, and its remaining basis lots) by
// factor and divides its mark by factor, per spec.md §6: "multiply shares[t] by total;
// recompute mark; no return contribution". A factor of 2.0 is a 2-for-1 split; 0.5 is a reverse
// split.
func (e *TwrEngine) Split(ticker string, factor float64) error {
	if factor <= 0 {
		return wrapTransactionErr(ticker, ErrInvalidTwrInput)
	}
	if shares, ok := e.shares[ticker]; ok {
		e.shares[ticker] = shares * factor
	}
	if shares, ok := e.sharesShort[ticker]; ok {
		e.sharesShort[ticker] = shares * factor
	}
	if price, ok := e.prices[ticker]; ok {
		e.prices[ticker] = price / factor
	}
	if price, ok := e.yesterdayPrices[ticker]; ok {
		e.yesterdayPrices[ticker] = price / factor
	}
	e.basis.ApplySplit(ticker, factor)
	return nil
}

// CloseAllShares removes every remaining long or short share of ticker at settlePrice (the
// option strike on exercise/assign, or 0 on expire) with no cash-flow contribution, per
// spec.md §6's exercise/assign/expire row -- the paired stock leg, not this call, carries the
// cash effect into the engine. It bypasses the ordinary cashIn/cashOut accumulators entirely so
// it contributes no weighted term to the day's blended return.
func (e *TwrEngine) CloseAllShares(ticker string, settlePrice float64) error {
	if settlePrice < 0 {
		return wrapTransactionErr(ticker, ErrInvalidTwrInput)
	}
	e.setMarkUnchecked(ticker, settlePrice)

	if long := e.shares[ticker]; long > 0 {
		if _, err := e.basis.Remove(ticker, long); err != nil {
			log.Warn().Err(err).Str("ticker", ticker).Msg("basis remove failed on option close")
		}
		delete(e.shares, ticker)
	}
	if short := e.sharesShort[ticker]; short > 0 {
		if _, err := e.basis.Remove(ticker, short); err != nil {
			log.Warn().Err(err).Str("ticker", ticker).Msg("basis remove failed on option close")
		}
		delete(e.sharesShort, ticker)
	}
	return nil
}

// shortValue computes the mark-to-market value of a short position per spec.md §4.B step (i):
// linear profit while price <= basis, asymptotic toward zero (never negative) beyond it.
func shortValue(shares, basis, price, totalBasis float64) float64 {
	if price <= basis {
		return shares*(basis-price) + totalBasis
	}
	return shares * basis * (basis / price)
}

// GetTotalValue returns Σ shares·price + Σ shortValue(...) + totalAdjustment across all
// tracked tickers (spec.md §4.B output accessors).
func (e *TwrEngine) GetTotalValue() float64 {
	var v float64
	for t, shares := range e.shares {
		v += shares * e.prices[t]
	}
	for t, shares := range e.sharesShort {
		v += shortValue(shares, e.basis.Basis(t), e.prices[t], e.basis.TotalBasis(t))
	}
	return v + e.totalAdjustment
}

func (e *TwrEngine) GetReturnSplit() float64 { return e.splitReturn }
func (e *TwrEngine) GetReturnDiv() float64   { return e.splitReturn * e.dividendMod }
func (e *TwrEngine) GetReturnFee() float64   { return e.splitReturn * e.dividendMod * e.feeMod }

// Day returns the number of completed EndDay calls.
func (e *TwrEngine) Day() int { return e.day }

// Shares returns the current long share count for ticker.
func (e *TwrEngine) Shares(ticker string) float64 { return e.shares[ticker] }

// ShortSharesHeld returns the current short share count for ticker.
func (e *TwrEngine) ShortSharesHeld(ticker string) float64 { return e.sharesShort[ticker] }

// EndDay folds the day's accumulated batch into the cumulative state and advances day. This is
// the design heart described in spec.md §4.B steps (a)-(o).
func (e *TwrEngine) EndDay() error {
	acc := e.acc
	defer func() { e.day++ }()

	// (a) net cash flow for the day.
	var todayNetCashIn float64
	for _, v := range acc.cashIn {
		todayNetCashIn += absf(v)
	}
	for _, v := range acc.cashOut {
		todayNetCashIn -= absf(v)
	}
	for _, v := range acc.cashInShort {
		todayNetCashIn += absf(v)
	}
	for _, v := range acc.cashOutShort {
		todayNetCashIn -= absf(v)
	}

	// (b) stock dividends/splits change share count but not value.
	for t, shares := range acc.stockDividendShares {
		e.shares[t] += shares
	}

	// (c) mark-to-market of yesterday's holdings at today's prices.
	todaysStartValue := e.GetTotalValue()

	var returnsToday []weightedReturn

	// (e) basis adjustments.
	for t, delta := range e.adjustBasises {
		if todaysStartValue > 0 {
			e.splitReturn *= (todaysStartValue + delta) / todaysStartValue
		}
		_ = t
	}
	e.adjustBasises = make(map[string]float64)

	// (f) long opens.
	for t, sharesIn := range acc.sharesIn {
		if sharesIn != 0 {
			executedPrice := acc.cashIn[t] / sharesIn
			e.basis.Add(t, e.day, sharesIn, executedPrice)

			if e.prices[t] != 0 && executedPrice != 0 {
				returnsToday = append(returnsToday, weightedReturn{acc.cashIn[t], e.prices[t] / executedPrice})
			} else {
				returnsToday = append(returnsToday, weightedReturn{acc.cashIn[t], 1.0})
			}
		}
		e.shares[t] += sharesIn
	}

	// (g) short opens.
	for t, sharesIn := range acc.sharesInShort {
		if sharesIn != 0 {
			executedPrice := acc.cashInShort[t] / sharesIn
			e.basis.Add(t, e.day, sharesIn, executedPrice)

			var thisReturn float64
			if executedPrice < e.prices[t] {
				thisReturn = executedPrice / e.prices[t]
			} else {
				thisReturn = 1.0 + (e.prices[t]-executedPrice)/e.prices[t]
			}
			returnsToday = append(returnsToday, weightedReturn{acc.cashInShort[t], thisReturn})
		}
		e.sharesShort[t] += sharesIn
	}

	// (h) long closes.
	for t, sharesOut := range acc.sharesOut {
		if sharesOut != 0 {
			executedPrice := acc.cashOut[t] / sharesOut
			var denom float64
			if yp, ok := e.yesterdayPrices[t]; ok && yp != 0 {
				denom = yp
			} else if e.prices[t] != 0 {
				denom = e.prices[t]
			}
			if denom != 0 {
				returnsToday = append(returnsToday, weightedReturn{acc.cashOut[t], executedPrice / denom})
			} else {
				returnsToday = append(returnsToday, weightedReturn{acc.cashOut[t], 1.0})
			}
		}
		if _, err := e.basis.Remove(t, absf(sharesOut)); err != nil {
			log.Warn().Err(err).Str("ticker", t).Msg("basis remove failed on long close")
		}
		e.shares[t] -= sharesOut
	}

	// (i) short closes.
	for t, sharesOut := range acc.sharesOutShort {
		if sharesOut != 0 {
			var yesterdayPrice float64
			if yp, ok := e.yesterdayPrices[t]; ok && yp != 0 {
				yesterdayPrice = yp
			} else {
				yesterdayPrice = e.prices[t]
			}
			basis := e.basis.Basis(t)
			totalBasis := basis * sharesOut
			yesterdayValue := shortValue(sharesOut, basis, yesterdayPrice, totalBasis)
			todayValue := shortValue(sharesOut, basis, e.prices[t], totalBasis)
			if yesterdayValue != 0 && todayValue != 0 {
				returnsToday = append(returnsToday, weightedReturn{basis, todayValue / yesterdayValue})
			}
		}
		if _, err := e.basis.Remove(t, sharesOut); err != nil {
			log.Warn().Err(err).Str("ticker", t).Msg("basis remove failed on short close")
		}
		e.sharesShort[t] -= sharesOut
		if absf(e.sharesShort[t]) < 1e-6 {
			delete(e.sharesShort, t)
		}
	}

	// (c continued) today's value after all share movement.
	todaysValue := e.GetTotalValue()

	// (j) whole-portfolio term.
	switch {
	case !e.haveYesterdayValue && todayNetCashIn != 0:
		// first day with cash flow: pure cash-in, no return term. A position re-opened after a
		// full close (yesterdayValue == 0) matches none of these cases and also gets no term.
	case e.haveYesterdayValue && todaysStartValue != 0 && e.yesterdayValue != 0:
		returnsToday = append(returnsToday, weightedReturn{todaysValue, todaysStartValue / e.yesterdayValue})
	case e.haveYesterdayValue && todaysValue == 0 && e.yesterdayValue != 0:
		if todayNetCashIn < 0 {
			returnsToday = append(returnsToday, weightedReturn{-todayNetCashIn, -todayNetCashIn / e.yesterdayValue})
		}
	}

	// (k) blend.
	var num, den float64
	for _, r := range returnsToday {
		num += r.weight * r.multiplier
		den += r.weight
	}
	if den > 0 {
		e.splitReturn *= num / den
	}

	// (l) day-one adjustment.
	if !e.haveYesterdayValue && acc.adjustment != 0 {
		withoutAdjustment := todaysValue - acc.adjustment
		if withoutAdjustment == 0 {
			log.Warn().Msg("day-one adjustment divisor is zero; leaving splitReturn unchanged")
		} else {
			e.splitReturn *= (withoutAdjustment + acc.adjustment) / withoutAdjustment
		}
	}

	// (m) fees.
	if acc.fees != 0 {
		maxHoldings := max3(todaysStartValue, todaysValue, todayNetCashIn)
		if maxHoldings > 0 {
			if acc.dividends > acc.fees {
				maxHoldings += acc.dividends - acc.fees
			}
			if !e.everHeldTicker {
				if maxHoldings < acc.fees {
					e.feeMod = 0.0
				} else {
					e.feeMod *= (maxHoldings - acc.fees) / maxHoldings
				}
			} else {
				e.feeMod *= maxHoldings / (maxHoldings + acc.fees)
			}
		} else {
			e.feeMod = 0.0
		}
	}

	// (n) dividends.
	if acc.dividends != 0 {
		denom := firstNonzero(e.yesterdayValue, todaysValue, e.lastValue)
		if denom != 0 {
			e.dividendMod *= (denom + acc.dividends) / denom
		}
	}

	// (o) snapshot and advance.
	for t, p := range e.prices {
		e.yesterdayPrices[t] = p
	}
	e.yesterdayValue = todaysValue
	e.haveYesterdayValue = true
	if todaysValue != 0 {
		e.lastValue = todaysValue
		e.haveLastValue = true
	}
	e.acc = nil

	return nil
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func firstNonzero(vals ...float64) float64 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
