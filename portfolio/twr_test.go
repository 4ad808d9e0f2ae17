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
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pv-returns/portfolio"
)

// day runs one BeginDay/EndDay cycle around fn, matching the source's
// beginTransactions()/...calls.../endTransactions() grouping.
func day(e *portfolio.TwrEngine, fn func()) {
	e.BeginDay()
	fn()
	Expect(e.EndDay()).To(Succeed())
}

var _ = Describe("TwrEngine", func() {
	Describe("basic price moves and dividends", func() {
		It("tracks splitReturn through successive marks, then a dividend", func() {
			e := portfolio.NewTwrEngine()

			day(e, func() { Expect(e.AddShares("A", 10, 100)).To(Succeed()) })

			day(e, func() { Expect(e.SetMark("A", 90)).To(Succeed()) })
			Expect(e.GetReturnSplit()).To(almostEqual(0.9))
			Expect(e.GetReturnDiv()).To(almostEqual(0.9))

			day(e, func() { Expect(e.SetMark("A", 110)).To(Succeed()) })
			Expect(e.GetReturnDiv()).To(almostEqual(1.1))

			day(e, func() { Expect(e.SetMark("A", 120)).To(Succeed()) })
			Expect(e.GetReturnDiv()).To(almostEqual(1.2))

			day(e, func() { Expect(e.AddDividend(100)).To(Succeed()) })
			Expect(e.GetReturnSplit()).To(almostEqual(1.2))
			Expect(e.GetReturnDiv()).To(almostEqual(1.3))
		})
	})

	Describe("removing shares", func() {
		It("leaves dividendReturn at 1 across partial closes with no price change", func() {
			e := portfolio.NewTwrEngine()

			day(e, func() { Expect(e.AddShares("A", 10, 100)).To(Succeed()) })
			Expect(e.GetReturnDiv()).To(almostEqual(1))

			day(e, func() { Expect(e.RemoveShares("A", 5, 100)).To(Succeed()) })
			Expect(e.GetReturnDiv()).To(almostEqual(1))

			day(e, func() { Expect(e.AddShares("A", 5, 100)).To(Succeed()) })
			day(e, func() { Expect(e.SetMark("A", 50)).To(Succeed()) })
			Expect(e.GetReturnDiv()).To(almostEqual(0.5))

			day(e, func() { Expect(e.SetMark("A", 100)).To(Succeed()) })
			Expect(e.GetReturnDiv()).To(almostEqual(1))
		})
	})

	Describe("dividend reinvestment", func() {
		It("compounds dividendReturn while leaving splitReturn unchanged", func() {
			e := portfolio.NewTwrEngine()

			day(e, func() { Expect(e.AddShares("A", 10, 100)).To(Succeed()) })

			day(e, func() { Expect(e.AddDividendReinvest("A", 1, 100)).To(Succeed()) })
			Expect(e.GetReturnSplit()).To(almostEqual(1))
			Expect(e.GetReturnDiv()).To(almostEqual(1.1))

			day(e, func() { Expect(e.AddDividendReinvest("A", 1.1, 100)).To(Succeed()) })
			Expect(e.GetReturnSplit()).To(almostEqual(1))
			Expect(e.GetReturnDiv()).To(almostEqual(1.21))
		})
	})

	Describe("multi-price same-day fills, scenario 5", func() {
		It("blends same-day fills by dollar weight, then closes at two prices next day", func() {
			e := portfolio.NewTwrEngine()

			day(e, func() {
				Expect(e.AddShares("A", 10, 100)).To(Succeed())
				Expect(e.AddShares("A", 10, 110)).To(Succeed())
			})
			Expect(e.GetTotalValue()).To(almostEqual(2200))
			Expect(e.GetReturnSplit()).To(almostEqual(1.047619))

			day(e, func() {
				Expect(e.RemoveShares("A", 5, 110)).To(Succeed())
				Expect(e.RemoveShares("A", 5, 105)).To(Succeed())
			})
			Expect(e.GetTotalValue()).To(almostEqual(1050))
			Expect(e.GetReturnSplit()).To(almostEqual(1.01204481793))
		})
	})

	Describe("fees", func() {
		It("applies feeMod against the largest of start/today/netCashIn holdings", func() {
			e := portfolio.NewTwrEngine()

			day(e, func() {
				Expect(e.AddShares("A", 10, 100)).To(Succeed())
				Expect(e.AddFee(100)).To(Succeed())
			})
			Expect(e.GetTotalValue()).To(almostEqual(1000))
			Expect(e.GetReturnSplit()).To(almostEqual(1))
			Expect(e.GetReturnDiv()).To(almostEqual(1))
			Expect(e.GetReturnFee()).To(almostEqual(0.9090909))

			day(e, func() {
				Expect(e.AddDividend(100)).To(Succeed())
				Expect(e.AddFee(100)).To(Succeed())
			})
			Expect(e.GetTotalValue()).To(almostEqual(1000))
			Expect(e.GetReturnSplit()).To(almostEqual(1))
			Expect(e.GetReturnDiv()).To(almostEqual(1.1))
			Expect(e.GetReturnFee()).To(almostEqual(0.9090909))
		})
	})

	Describe("basis adjustment", func() {
		It("inflates splitReturn by exactly the adjustment so no spurious loss registers", func() {
			e := portfolio.NewTwrEngine()

			day(e, func() { Expect(e.AddShares("A", 10, 100)).To(Succeed()) })
			Expect(e.GetReturnSplit()).To(almostEqual(1))

			day(e, func() {
				e.AdjustBasis("A", 500)
				Expect(e.SetMark("A", 50)).To(Succeed())
			})
			Expect(e.GetReturnSplit()).To(almostEqual(1))
			Expect(e.GetReturnDiv()).To(almostEqual(1))
			Expect(e.GetReturnFee()).To(almostEqual(1))
			Expect(e.GetTotalValue()).To(almostEqual(500))

			day(e, func() { Expect(e.SetMark("A", 60)).To(Succeed()) })
			Expect(e.GetTotalValue()).To(almostEqual(600))
			Expect(e.GetReturnSplit()).To(almostEqual(1.2))
			Expect(e.GetReturnDiv()).To(almostEqual(1.2))
			Expect(e.GetReturnFee()).To(almostEqual(1.2))
		})
	})

	Describe("cash adjustment", func() {
		It("treats addAdjustment as a direct value bump across all three series", func() {
			e := portfolio.NewTwrEngine()

			day(e, func() {
				Expect(e.AddShares("A", 10, 100)).To(Succeed())
				e.AddAdjustment(100)
			})
			Expect(e.GetTotalValue()).To(almostEqual(1100))
			Expect(e.GetReturnSplit()).To(almostEqual(1.1))
			Expect(e.GetReturnDiv()).To(almostEqual(1.1))
			Expect(e.GetReturnFee()).To(almostEqual(1.1))

			day(e, func() { e.AddAdjustment(300) })
			Expect(e.GetTotalValue()).To(almostEqual(1400))
			Expect(e.GetReturnSplit()).To(almostEqual(1.4))
		})
	})

	Describe("dividend after a fully closed position", func() {
		It("still compounds dividendReturn using the last positive value", func() {
			e := portfolio.NewTwrEngine()

			day(e, func() { Expect(e.AddShares("A", 10, 100)).To(Succeed()) })
			Expect(e.GetTotalValue()).To(almostEqual(1000))

			day(e, func() { Expect(e.RemoveShares("A", 10, 100)).To(Succeed()) })
			Expect(e.GetTotalValue()).To(almostEqual(0))
			Expect(e.GetReturnSplit()).To(almostEqual(1))

			day(e, func() { Expect(e.AddDividend(100)).To(Succeed()) })
			Expect(e.GetTotalValue()).To(almostEqual(0))
			Expect(e.GetReturnSplit()).To(almostEqual(1))
			Expect(e.GetReturnDiv()).To(almostEqual(1.1))
		})
	})

	Describe("basic short, scenario 4", func() {
		It("moves inversely to price near the basis and toward an asymptotic floor past it", func() {
			e := portfolio.NewTwrEngine()

			day(e, func() { Expect(e.ShortShares("A", 10, 100)).To(Succeed()) })
			Expect(e.GetTotalValue()).To(almostEqual(1000))

			day(e, func() { Expect(e.SetMark("A", 90)).To(Succeed()) })
			Expect(e.GetReturnSplit()).To(almostEqual(1.1))
			Expect(e.GetReturnDiv()).To(almostEqual(1.1))

			day(e, func() { Expect(e.SetMark("A", 110)).To(Succeed()) })
			Expect(e.GetReturnSplit()).To(almostEqual(0.9090909))
		})

		It("values a fully-depressed short at 2x total basis", func() {
			e := portfolio.NewTwrEngine()
			day(e, func() { Expect(e.ShortShares("A", 10, 100)).To(Succeed()) })
			day(e, func() { Expect(e.SetMark("A", 0)).To(Succeed()) })
			Expect(e.GetTotalValue()).To(almostEqual(2000))
			Expect(e.GetReturnSplit()).To(almostEqual(2))
		})
	})

	Describe("multiple short opens", func() {
		It("blends multiple same-day short fills by basis-dollar weight", func() {
			e := portfolio.NewTwrEngine()

			day(e, func() { Expect(e.ShortShares("A", 10, 100)).To(Succeed()) })
			Expect(e.GetTotalValue()).To(almostEqual(1000))

			day(e, func() {
				Expect(e.ShortShares("A", 10, 90)).To(Succeed())
				Expect(e.ShortShares("A", 5, 90)).To(Succeed())
			})
			Expect(e.GetTotalValue()).To(almostEqual(2450))
			Expect(e.GetReturnSplit()).To(almostEqual(1.06447368421))
			Expect(e.GetReturnDiv()).To(almostEqual(1.06447368421))
			Expect(e.GetReturnFee()).To(almostEqual(1.06447368421))
		})
	})

	Describe("invariants", func() {
		It("1: a same-day deposit+equivalent buy does not move splitReturn", func() {
			withBuy := portfolio.NewTwrEngine()
			day(withBuy, func() { Expect(withBuy.AddShares("A", 10, 100)).To(Succeed()) })
			day(withBuy, func() { Expect(withBuy.SetMark("A", 105)).To(Succeed()) })

			plain := portfolio.NewTwrEngine()
			day(plain, func() { Expect(plain.AddShares("A", 10, 100)).To(Succeed()) })
			day(plain, func() { Expect(plain.SetMark("A", 105)).To(Succeed()) })

			Expect(withBuy.GetReturnSplit()).To(almostEqual(plain.GetReturnSplit()))
		})

		It("2: chain rule -- splitReturn(n) = splitReturn(n-1) * dayMultiplier(n)", func() {
			e := portfolio.NewTwrEngine()
			day(e, func() { Expect(e.AddShares("A", 10, 100)).To(Succeed()) })
			day(e, func() { Expect(e.SetMark("A", 110)).To(Succeed()) })
			afterDay1 := e.GetReturnSplit()

			day(e, func() { Expect(e.SetMark("A", 121)).To(Succeed()) })
			// day multiplier for this day is 121/110 = 1.1 exactly.
			Expect(e.GetReturnSplit()).To(almostEqual(afterDay1 * 1.1))
		})

		It("3: a 2-for-1 split followed by the half-priced mark leaves splitReturn unchanged", func() {
			e := portfolio.NewTwrEngine()
			day(e, func() { Expect(e.AddShares("A", 10, 100)).To(Succeed()) })
			before := e.GetReturnSplit()

			day(e, func() {
				Expect(e.Split("A", 2.0)).To(Succeed())
				Expect(e.SetMark("A", 50)).To(Succeed())
			})
			Expect(e.GetReturnSplit()).To(almostEqual(before))
			Expect(e.Shares("A")).To(almostEqual(20))
		})

		It("4: a positive dividend strictly increases dividendMod but not splitReturn", func() {
			e := portfolio.NewTwrEngine()
			day(e, func() { Expect(e.AddShares("A", 10, 100)).To(Succeed()) })
			splitBefore := e.GetReturnSplit()
			divBefore := e.GetReturnDiv()

			day(e, func() { Expect(e.AddDividend(50)).To(Succeed()) })
			Expect(e.GetReturnSplit()).To(almostEqual(splitBefore))
			Expect(e.GetReturnDiv()).To(BeNumerically(">", divBefore))
		})

		It("5: a positive fee strictly decreases feeReturn but not splitReturn or dividendReturn", func() {
			e := portfolio.NewTwrEngine()
			day(e, func() { Expect(e.AddShares("A", 10, 100)).To(Succeed()) })
			splitBefore := e.GetReturnSplit()
			divBefore := e.GetReturnDiv()
			feeBefore := e.GetReturnFee()

			day(e, func() { Expect(e.AddFee(10)).To(Succeed()) })
			Expect(e.GetReturnSplit()).To(almostEqual(splitBefore))
			Expect(e.GetReturnDiv()).To(almostEqual(divBefore))
			Expect(e.GetReturnFee()).To(BeNumerically("<", feeBefore))
		})

		It("6: a short marked at its own basis has a day multiplier of 1", func() {
			e := portfolio.NewTwrEngine()
			day(e, func() { Expect(e.ShortShares("A", 10, 100)).To(Succeed()) })
			before := e.GetReturnSplit()
			day(e, func() { Expect(e.SetMark("A", 100)).To(Succeed()) })
			Expect(e.GetReturnSplit()).To(almostEqual(before))
		})

		It("7: round trip -- open N at p, mark unchanged, close N at p leaves splitReturn at 1", func() {
			e := portfolio.NewTwrEngine()
			day(e, func() { Expect(e.AddShares("A", 10, 100)).To(Succeed()) })
			day(e, func() { Expect(e.RemoveShares("A", 10, 100)).To(Succeed()) })
			Expect(e.GetReturnSplit()).To(almostEqual(1))
		})
	})
})
