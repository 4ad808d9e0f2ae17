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
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/penny-vault/pv-returns/data"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/penny-vault/pv-returns/portfolio")

// DailyMeasurement is one day's sample of the three cumulative return series plus current
// portfolio value, per spec.md §6's "Return series output".
type DailyMeasurement struct {
	Date           time.Time
	SplitReturn    float64
	DividendReturn float64
	FeeReturn      float64
	TotalValue     float64
	MissingPrices  []string // tickers the oracle had no quote for on Date
}

// Holding is a current position snapshot: share count and average cost basis for one ticker
// (or synthetic option key).
type Holding struct {
	Ticker string
	Shares float64
	Short  bool
	Basis  float64 // average price per share across remaining lots
}

// Result is the output of a full Replay.Run: the daily return/value series plus the resulting
// holdings and per-position basis, per spec.md §4.D.
type Result struct {
	Measurements []DailyMeasurement
	Holdings     []Holding
}

// Replay owns one TwrEngine and its BasisLedger for the life of a single replay (spec.md §5: a
// replay owns its TwrState and BasisLedger exclusively; never shared across replays).
type Replay struct {
	engine  *TwrEngine
	tickers map[string]bool
}

// NewReplay returns a Replay with a fresh, empty engine.
func NewReplay() *Replay {
	return &Replay{
		engine:  NewTwrEngine(),
		tickers: make(map[string]bool),
	}
}

// Run sorts transactions, resolves ambiguous option lifecycle events, then drives the engine
// one calendar day at a time from the first transaction's date through `through` inclusive,
// per spec.md §4.D. A canceled ctx is checked only between day-groups: a day already begun
// always completes its matching EndDay before Run returns ctx.Err(), per spec.md §5's coarse
// cancellation contract.
func (r *Replay) Run(ctx context.Context, transactions []*Transaction, oracle data.PriceOracle, through time.Time) (*Result, error) {
	active := make([]*Transaction, 0, len(transactions))
	for _, trx := range transactions {
		if trx.Deleted {
			continue
		}
		if err := trx.Validate(); err != nil {
			return nil, err
		}
		active = append(active, trx)
	}
	if len(active) == 0 {
		return &Result{}, nil
	}

	resolved := ResolveOptionLifecycle(active)

	sort.SliceStable(resolved, func(i, j int) bool {
		if !resolved[i].Date.Equal(resolved[j].Date) {
			return resolved[i].Date.Before(resolved[j].Date)
		}
		return ordering(resolved[i].Kind) < ordering(resolved[j].Kind)
	})

	firstDay := truncateDay(resolved[0].Date)
	lastDay := truncateDay(through)
	if lastDay.Before(firstDay) {
		lastDay = truncateDay(resolved[len(resolved)-1].Date)
	}

	byDay := make(map[time.Time][]*Transaction)
	for _, trx := range resolved {
		day := truncateDay(trx.Date)
		byDay[day] = append(byDay[day], trx)
	}

	result := &Result{}

	for day := firstDay; !day.After(lastDay); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		dayCtx, span := tracer.Start(ctx, "portfolio.Replay.day")

		measurement, err := r.runDay(dayCtx, day, byDay[day], oracle)
		span.End()
		if err != nil {
			return result, err
		}
		result.Measurements = append(result.Measurements, measurement)
	}

	result.Holdings = r.snapshotHoldings()
	return result, nil
}

// runDay executes one BeginDay/.../EndDay cycle for a single calendar day.
func (r *Replay) runDay(ctx context.Context, day time.Time, trxs []*Transaction, oracle data.PriceOracle) (DailyMeasurement, error) {
	e := r.engine
	e.BeginDay()

	for _, trx := range trxs {
		if err := r.apply(trx); err != nil {
			return DailyMeasurement{}, wrapTransactionErr(trx.UniqueID, err)
		}
	}

	var missing []string
	for ticker := range r.tickers {
		price, ok := oracle.PriceOn(ctx, ticker, day)
		if !ok {
			missing = append(missing, ticker)
			continue
		}
		if err := e.SetMark(ticker, price); err != nil {
			log.Warn().Err(err).Str("ticker", ticker).Time("day", day).Msg("failed to set mark")
		}
	}

	if err := e.EndDay(); err != nil {
		return DailyMeasurement{}, err
	}

	return DailyMeasurement{
		Date:           day,
		SplitReturn:    e.GetReturnSplit(),
		DividendReturn: e.GetReturnDiv(),
		FeeReturn:      e.GetReturnFee(),
		TotalValue:     e.GetTotalValue(),
		MissingPrices:  missing,
	}, nil
}

// apply invokes the engine call(s) dictated by trx.Kind, per spec.md §6's kind-mapping table.
func (r *Replay) apply(trx *Transaction) error {
	e := r.engine
	ticker := trx.Ticker
	if trx.IsOption() {
		ticker = trx.OptionKey().String()
	}
	if ticker != "" && ticker != CashTicker {
		r.tickers[ticker] = true
	}

	switch trx.Kind {
	case Deposit, TransferIn:
		if trx.Ticker != CashTicker {
			if err := e.AddShares(ticker, trx.SharesValue(), trx.PriceValue()); err != nil {
				return err
			}
			return e.AddFee(trx.FeeValue())
		}
		return nil

	case Withdrawal:
		return nil

	case TransferOut:
		if trx.Ticker != CashTicker {
			if err := e.RemoveShares(ticker, trx.SharesValue(), trx.PriceValue()); err != nil {
				return err
			}
			return e.AddFee(trx.FeeValue())
		}
		return nil

	case Buy:
		if err := e.AddShares(ticker, trx.SharesValue(), trx.PriceValue()); err != nil {
			return err
		}
		return e.AddFee(trx.FeeValue())

	case Sell:
		if err := e.RemoveShares(ticker, trx.SharesValue(), trx.PriceValue()); err != nil {
			return err
		}
		return e.AddFee(trx.FeeValue())

	case Short:
		return e.ShortShares(ticker, trx.SharesValue(), trx.PriceValue())

	case Cover:
		return e.CoverShares(ticker, trx.SharesValue(), trx.PriceValue())

	case Dividend:
		return e.AddDividend(trx.TotalValue())

	case DividendReinvest:
		return e.AddDividendReinvest(ticker, trx.SharesValue(), trx.PriceValue())

	case Split:
		return e.Split(ticker, trx.TotalValue())

	case StockDividend:
		e.StockDividendShares(ticker, trx.SharesValue())
		return nil

	case Spinoff:
		e.AdjustBasis(ticker, -trx.TotalValue())
		if trx.Ticker2 != "" {
			r.tickers[trx.Ticker2] = true
			return e.AddShares(trx.Ticker2, trx.SharesValue(), trx.PriceValue())
		}
		return nil

	case Adjustment:
		if trx.Ticker == CashTicker {
			e.AddAdjustment(trx.TotalValue())
		} else {
			e.AdjustBasis(ticker, trx.TotalValue())
		}
		return nil

	case Expense:
		return e.AddFee(absf(trx.TotalValue()))

	case BuyToOpen:
		return e.AddShares(ticker, trx.SharesValue(), trx.PriceValue())

	case SellToOpen:
		return e.ShortShares(ticker, trx.SharesValue(), trx.PriceValue())

	case SellToClose:
		return e.RemoveShares(ticker, trx.SharesValue(), trx.PriceValue())

	case BuyToClose:
		return e.CoverShares(ticker, trx.SharesValue(), trx.PriceValue())

	case Exercise, Assign:
		var strike float64
		if trx.OptionStrike != nil {
			strike = *trx.OptionStrike
		}
		return e.CloseAllShares(ticker, strike)

	case Expire:
		return e.CloseAllShares(ticker, 0)

	case TickerChange:
		return nil

	default:
		return fmt.Errorf("transaction %s: unrecognized kind %d", trx.UniqueID, trx.Kind)
	}
}

// snapshotHoldings reports every ticker with a nonzero long or short position.
func (r *Replay) snapshotHoldings() []Holding {
	var holdings []Holding
	for ticker := range r.tickers {
		if long := r.engine.Shares(ticker); absf(long) > 1e-9 {
			holdings = append(holdings, Holding{Ticker: ticker, Shares: long, Basis: r.engine.basis.Basis(ticker)})
		}
		if short := r.engine.ShortSharesHeld(ticker); absf(short) > 1e-9 {
			holdings = append(holdings, Holding{Ticker: ticker, Shares: short, Short: true, Basis: r.engine.basis.Basis(ticker)})
		}
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Ticker < holdings[j].Ticker })
	return holdings
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
