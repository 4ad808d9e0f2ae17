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
	"fmt"
	"time"
)

// CashTicker is the sentinel ticker that denotes the portfolio's cash position.
const CashTicker = "__CASH__"

// TransactionKind enumerates the 23 transaction variants the core understands. The numeric
// codes are part of the persisted contract (database column `type`) and must never be
// renumbered.
type TransactionKind uint8

const (
	Deposit          TransactionKind = 0
	Withdrawal       TransactionKind = 1
	Expense          TransactionKind = 2
	Buy              TransactionKind = 3
	Sell             TransactionKind = 4
	Split            TransactionKind = 5
	Dividend         TransactionKind = 6
	Adjustment       TransactionKind = 7
	StockDividend    TransactionKind = 8
	DividendReinvest TransactionKind = 9
	Spinoff          TransactionKind = 10
	TransferIn       TransactionKind = 11
	TransferOut      TransactionKind = 12
	Short            TransactionKind = 13
	Cover            TransactionKind = 14
	TickerChange     TransactionKind = 15
	Exercise         TransactionKind = 16
	Assign           TransactionKind = 17
	BuyToOpen        TransactionKind = 18
	SellToClose      TransactionKind = 19
	SellToOpen       TransactionKind = 20
	BuyToClose       TransactionKind = 21
	Expire           TransactionKind = 22
)

// kindNames mirrors transaction.py's getTypeString/getType round trip restored from
// original_source; it backs TransactionKind.String and ParseKindString. The HTTP handlers do
// not render kind names.
var kindNames = map[TransactionKind]string{
	Deposit:          "Deposit",
	Withdrawal:       "Withdrawal",
	Expense:          "Expense",
	Buy:              "Buy",
	Sell:             "Sell",
	Split:            "Split",
	Dividend:         "Dividend",
	Adjustment:       "Adjustment",
	StockDividend:    "Stock Dividend",
	DividendReinvest: "Dividend Reinvest",
	Spinoff:          "Spinoff",
	TransferIn:       "Transfer In",
	TransferOut:      "Transfer Out",
	Short:            "Short",
	Cover:            "Cover",
	TickerChange:     "Ticker Change",
	Exercise:         "Options: Exercised",
	Assign:           "Options: Assigned",
	BuyToOpen:        "Options: Buy to Open",
	SellToClose:      "Options: Sell to Close",
	SellToOpen:       "Options: Sell to Open",
	BuyToClose:       "Options: Buy to Close",
	Expire:           "Options: Expired",
}

// String returns the human-readable name for k, or "???" if k is unrecognized.
func (k TransactionKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "???"
}

// ParseKindString is the inverse of String: ParseKindString(k.String()) == k.
func ParseKindString(s string) (TransactionKind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// DividendSubType classifies a dividend transaction for tax purposes. It does not feed the TWR
// engine; it is carried for data fidelity only (see SPEC_FULL.md §9).
type DividendSubType uint8

const (
	DividendOrdinary             DividendSubType = 1
	DividendQualified            DividendSubType = 2
	DividendCapitalGainShortTerm DividendSubType = 3
	DividendCapitalGainLongTerm  DividendSubType = 4
	DividendReturnOfCapital      DividendSubType = 5
	DividendTaxExempt            DividendSubType = 6
)

// OptionPutCall distinguishes put and call legs of an option transaction.
type OptionPutCall uint8

const (
	OptionPut  OptionPutCall = 1
	OptionCall OptionPutCall = 2
)

var optionKinds = map[TransactionKind]bool{
	BuyToOpen:   true,
	SellToClose: true,
	SellToOpen:  true,
	BuyToClose:  true,
	Exercise:    true,
	Assign:      true,
	Expire:      true,
}

// closeSideOptionKinds are the option kinds the lifecycle resolver may reclassify.
var closeSideOptionKinds = map[TransactionKind]bool{
	BuyToClose:  true,
	SellToClose: true,
}

// Transaction is an immutable, once-created record of a single portfolio event. The option
// lifecycle resolver returns copies with Kind/Auto changed rather than mutating its input;
// every consumer treats a Transaction as read-only. Optional fields are nil pointers rather than
// zero-values so "absent" and "explicitly zero" stay distinguishable, mirroring the source's
// False-sentinel convention (original_source/transaction.py).
type Transaction struct {
	UniqueID string
	Date     time.Time
	Kind     TransactionKind

	Ticker  string
	Ticker2 string // spinoff/tickerChange target; "" unless Kind requires it

	Shares        *float64
	PricePerShare *float64
	Fee           *float64
	Total         *float64 // after Fee; sign convention is per-Kind

	DividendSubType DividendSubType // only meaningful when Kind == Dividend
	OptionPutCall   OptionPutCall   // only meaningful for option kinds
	OptionStrike    *float64
	OptionExpire    *time.Time

	Edited  bool
	Deleted bool
	Auto    bool // synthesized by the core (e.g. option lifecycle resolution) rather than imported
}

// IsOption reports whether trx represents an option leg.
func (trx *Transaction) IsOption() bool {
	return optionKinds[trx.Kind] || trx.OptionStrike != nil
}

// IsCloseSideOption reports whether trx is a close-side option transaction eligible for
// lifecycle resolution (buyToClose/sellToClose).
func (trx *Transaction) IsCloseSideOption() bool {
	return closeSideOptionKinds[trx.Kind]
}

// HasPriceOrTotal reports whether the transaction carries a nonzero price or total -- the
// signal the option lifecycle resolver uses to separate real broker fills from ambiguous
// lifecycle events.
func (trx *Transaction) HasPriceOrTotal() bool {
	if trx.PricePerShare != nil && *trx.PricePerShare != 0 {
		return true
	}
	if trx.Total != nil && *trx.Total != 0 {
		return true
	}
	return false
}

// SharesValue returns the Shares field or 0 if absent.
func (trx *Transaction) SharesValue() float64 {
	if trx.Shares == nil {
		return 0
	}
	return *trx.Shares
}

// PriceValue returns the PricePerShare field or 0 if absent.
func (trx *Transaction) PriceValue() float64 {
	if trx.PricePerShare == nil {
		return 0
	}
	return *trx.PricePerShare
}

// FeeValue returns the Fee field or 0 if absent.
func (trx *Transaction) FeeValue() float64 {
	if trx.Fee == nil {
		return 0
	}
	return *trx.Fee
}

// TotalValue returns the Total field or 0 if absent.
func (trx *Transaction) TotalValue() float64 {
	if trx.Total == nil {
		return 0
	}
	return *trx.Total
}

// OptionKey uniquely identifies a synthetic option "ticker" the TWR engine and basis ledger
// track as their own position, keyed by (underlying, expire, strike, put/call) per
// SPEC_FULL.md §4.D.
type OptionKey struct {
	Underlying string
	Expire     time.Time
	Strike     float64
	PutCall    OptionPutCall
}

func (k OptionKey) String() string {
	pc := "P"
	if k.PutCall == OptionCall {
		pc = "C"
	}
	return fmt.Sprintf("%s:%s:%.4f:%s", k.Underlying, k.Expire.Format("2006-01-02"), k.Strike, pc)
}

// OptionKey returns the synthetic ticker key for an option transaction. Callers must check
// IsOption first.
func (trx *Transaction) OptionKey() OptionKey {
	var expire time.Time
	if trx.OptionExpire != nil {
		expire = *trx.OptionExpire
	}
	var strike float64
	if trx.OptionStrike != nil {
		strike = *trx.OptionStrike
	}
	return OptionKey{
		Underlying: trx.Ticker,
		Expire:     expire,
		Strike:     strike,
		PutCall:    trx.OptionPutCall,
	}
}

// Validate checks the invariants of the data model (SPEC_FULL.md §3 / spec.md §3). It does not
// check engine-level preconditions (those live in ErrInvalidTwrInput territory).
func (trx *Transaction) Validate() error {
	switch trx.Kind {
	case Deposit, Withdrawal:
		if trx.Ticker != CashTicker {
			return fmt.Errorf("transaction %s: kind %s requires ticker %s, got %q", trx.UniqueID, trx.Kind, CashTicker, trx.Ticker)
		}
	case BuyToOpen, SellToClose, SellToOpen, BuyToClose, Exercise, Assign, Expire:
		if trx.OptionStrike == nil || trx.OptionExpire == nil {
			return fmt.Errorf("transaction %s: kind %s requires optionStrike and optionExpire", trx.UniqueID, trx.Kind)
		}
		if trx.OptionPutCall != OptionPut && trx.OptionPutCall != OptionCall {
			return fmt.Errorf("transaction %s: kind %s requires subType put or call", trx.UniqueID, trx.Kind)
		}
	case Spinoff, TickerChange:
		if trx.Ticker2 == "" || trx.Ticker2 == trx.Ticker {
			return fmt.Errorf("transaction %s: kind %s requires a distinct ticker2", trx.UniqueID, trx.Kind)
		}
	}
	return nil
}

// ordering returns the intra-day processing order for kind, per spec.md §4.D. Deposits and
// opens must precede sells within the same day to avoid spurious short detection.
func ordering(kind TransactionKind) int {
	switch kind {
	case Deposit, TransferIn:
		return 0
	case Buy, Short, DividendReinvest, BuyToOpen, SellToOpen:
		return 1
	case Split, Dividend, Spinoff, TickerChange:
		return 2
	case Sell, Cover, BuyToClose, SellToClose:
		return 99
	case Withdrawal, TransferOut:
		return 100
	default:
		return 50
	}
}
