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

package portfolio_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-returns/data"
	"github.com/penny-vault/pv-returns/portfolio"
)

var _ = Describe("Replay", func() {
	day1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	day3 := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)

	It("replays a buy-then-mark sequence into the same splitReturn the engine would produce directly", func() {
		oracle := data.NewStaticOracle()
		oracle.Set("A", day2, 110)

		trxs := []*portfolio.Transaction{
			{UniqueID: "t1", Date: day1, Kind: portfolio.Buy, Ticker: "A", Shares: f(10), PricePerShare: f(100)},
		}

		result, err := portfolio.NewReplay().Run(context.Background(), trxs, oracle, day2)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Measurements).To(HaveLen(2))
		Expect(result.Measurements[0].Date).To(Equal(day1))
		Expect(result.Measurements[1].SplitReturn).To(almostEqual(1.1))
		Expect(result.Measurements[1].TotalValue).To(almostEqual(1100))

		Expect(result.Holdings).To(HaveLen(1))
		Expect(result.Holdings[0].Ticker).To(Equal("A"))
		Expect(result.Holdings[0].Shares).To(almostEqual(10))
		Expect(result.Holdings[0].Basis).To(almostEqual(100))
	})

	It("orders a same-day deposit-equivalent buy before a sell so no spurious short is detected", func() {
		oracle := data.NewStaticOracle()
		trxs := []*portfolio.Transaction{
			// deliberately out of order on input -- Run must sort by (date, ordering(kind)).
			{UniqueID: "sell-1", Date: day1, Kind: portfolio.Sell, Ticker: "A", Shares: f(10), PricePerShare: f(100)},
			{UniqueID: "buy-1", Date: day1, Kind: portfolio.Buy, Ticker: "A", Shares: f(10), PricePerShare: f(100)},
		}

		result, err := portfolio.NewReplay().Run(context.Background(), trxs, oracle, day1)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Measurements).To(HaveLen(1))
		Expect(result.Measurements[0].SplitReturn).To(almostEqual(1))
		Expect(result.Holdings).To(BeEmpty())
	})

	It("reduces shares, basis, and value on a stock transferOut, mirroring a sell", func() {
		oracle := data.NewStaticOracle()
		oracle.Set("A", day2, 100)

		trxs := []*portfolio.Transaction{
			{UniqueID: "t1", Date: day1, Kind: portfolio.Buy, Ticker: "A", Shares: f(10), PricePerShare: f(100)},
			{UniqueID: "t2", Date: day2, Kind: portfolio.TransferOut, Ticker: "A", Shares: f(4), PricePerShare: f(100)},
		}

		result, err := portfolio.NewReplay().Run(context.Background(), trxs, oracle, day2)
		Expect(err).NotTo(HaveOccurred())

		last := result.Measurements[len(result.Measurements)-1]
		Expect(last.SplitReturn).To(almostEqual(1))
		Expect(last.TotalValue).To(almostEqual(600))

		Expect(result.Holdings).To(HaveLen(1))
		Expect(result.Holdings[0].Shares).To(almostEqual(6))
	})

	It("leaves holdings untouched on a cash withdrawal or cash transferOut", func() {
		oracle := data.NewStaticOracle()
		oracle.Set("A", day2, 100)

		trxs := []*portfolio.Transaction{
			{UniqueID: "t1", Date: day1, Kind: portfolio.Buy, Ticker: "A", Shares: f(10), PricePerShare: f(100)},
			{UniqueID: "t2", Date: day2, Kind: portfolio.Withdrawal, Ticker: portfolio.CashTicker, Total: f(50)},
			{UniqueID: "t3", Date: day2, Kind: portfolio.TransferOut, Ticker: portfolio.CashTicker, Total: f(50)},
		}

		result, err := portfolio.NewReplay().Run(context.Background(), trxs, oracle, day2)
		Expect(err).NotTo(HaveOccurred())

		Expect(result.Holdings).To(HaveLen(1))
		Expect(result.Holdings[0].Shares).To(almostEqual(10))
	})

	It("resolves an ambiguous sellToClose put as an exercise and folds the stock leg's removal into holdings", func() {
		expire := time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)
		oracle := data.NewStaticOracle()

		trxs := []*portfolio.Transaction{
			{UniqueID: "stock-open", Date: day1, Kind: portfolio.Buy, Ticker: "XYZ", Shares: f(100), PricePerShare: f(50)},
			{
				UniqueID: "opt-1", Date: day2, Kind: portfolio.SellToClose, Ticker: "XYZ",
				Shares: f(1), OptionPutCall: portfolio.OptionPut, OptionStrike: f(50), OptionExpire: &expire,
			},
			{UniqueID: "stock-close", Date: day2, Kind: portfolio.Sell, Ticker: "XYZ", Shares: f(100), PricePerShare: f(50)},
		}

		result, err := portfolio.NewReplay().Run(context.Background(), trxs, oracle, day2)
		Expect(err).NotTo(HaveOccurred())
		// the stock leg fully closes the underlying position; the option leg is a separate
		// synthetic ticker and CloseAllShares never opened a position for it here, so the only
		// holding left is none at all.
		Expect(result.Holdings).To(BeEmpty())
	})

	It("flags a day with no oracle price as MissingPrices without failing the replay", func() {
		oracle := data.NewStaticOracle() // empty: every lookup misses

		trxs := []*portfolio.Transaction{
			{UniqueID: "t1", Date: day1, Kind: portfolio.Buy, Ticker: "A", Shares: f(10), PricePerShare: f(100)},
		}

		result, err := portfolio.NewReplay().Run(context.Background(), trxs, oracle, day3)
		Expect(err).NotTo(HaveOccurred())
		last := result.Measurements[len(result.Measurements)-1]
		Expect(last.MissingPrices).To(ContainElement("A"))
		// the engine carries the last nonzero mark forward, so value still reflects the buy.
		Expect(last.TotalValue).To(almostEqual(1000))
	})

	It("produces bit-identical results across two replays of the same inputs, per the determinism contract", func() {
		oracle := data.NewStaticOracle()
		oracle.Set("A", day2, 110)
		oracle.Set("A", day3, 90)

		trxs := []*portfolio.Transaction{
			{UniqueID: "t1", Date: day1, Kind: portfolio.Buy, Ticker: "A", Shares: f(10), PricePerShare: f(100)},
			{UniqueID: "t2", Date: day2, Kind: portfolio.Dividend, Ticker: "A", Total: f(5)},
		}

		first, err := portfolio.NewReplay().Run(context.Background(), trxs, oracle, day3)
		Expect(err).NotTo(HaveOccurred())
		second, err := portfolio.NewReplay().Run(context.Background(), trxs, oracle, day3)
		Expect(err).NotTo(HaveOccurred())

		Expect(portfolio.AssertDeterministic(first, second)).To(Succeed())
	})
})
