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
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pv-returns/portfolio"
)

func f(v float64) *float64 { return &v }

var _ = Describe("ResolveOptionLifecycle", func() {
	expire := time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	It("reclassifies an ambiguous sellToClose put as exercise when a same-day stock sell covers it, scenario 6", func() {
		optionLeg := &portfolio.Transaction{
			UniqueID:      "opt-1",
			Date:          day,
			Kind:          portfolio.SellToClose,
			Ticker:        "XYZ",
			Shares:        f(1),
			OptionPutCall: portfolio.OptionPut,
			OptionStrike:  f(50),
			OptionExpire:  &expire,
		}
		stockLeg := &portfolio.Transaction{
			UniqueID:      "stock-1",
			Date:          day,
			Kind:          portfolio.Sell,
			Ticker:        "XYZ",
			Shares:        f(100),
			PricePerShare: f(50),
		}

		out := portfolio.ResolveOptionLifecycle([]*portfolio.Transaction{optionLeg, stockLeg})
		Expect(out[0].Kind).To(Equal(portfolio.Exercise))
		Expect(out[0].Auto).To(BeTrue())
		// stockLeg is untouched -- the resolver only reclassifies ambiguous close-side legs.
		Expect(out[1].Kind).To(Equal(portfolio.Sell))
	})

	It("reclassifies the same option leg as expire when the stock leg is absent", func() {
		optionLeg := &portfolio.Transaction{
			UniqueID:      "opt-2",
			Date:          day,
			Kind:          portfolio.SellToClose,
			Ticker:        "XYZ",
			Shares:        f(1),
			OptionPutCall: portfolio.OptionPut,
			OptionStrike:  f(50),
			OptionExpire:  &expire,
		}

		out := portfolio.ResolveOptionLifecycle([]*portfolio.Transaction{optionLeg})
		Expect(out[0].Kind).To(Equal(portfolio.Expire))
		Expect(out[0].Auto).To(BeTrue())
	})

	It("reclassifies an ambiguous sellToClose call as exercise on a same-day offsetting buy", func() {
		optionLeg := &portfolio.Transaction{
			UniqueID:      "opt-3",
			Date:          day,
			Kind:          portfolio.SellToClose,
			Ticker:        "XYZ",
			Shares:        f(2),
			OptionPutCall: portfolio.OptionCall,
			OptionStrike:  f(75),
			OptionExpire:  &expire,
		}
		stockLeg := &portfolio.Transaction{
			UniqueID:      "stock-3",
			Date:          day,
			Kind:          portfolio.Buy,
			Ticker:        "XYZ",
			Shares:        f(200),
			PricePerShare: f(75),
		}

		out := portfolio.ResolveOptionLifecycle([]*portfolio.Transaction{optionLeg, stockLeg})
		Expect(out[0].Kind).To(Equal(portfolio.Exercise))
	})

	It("ignores an unrelated same-day option open/close fill at the same price as the strike", func() {
		optionLeg := &portfolio.Transaction{
			UniqueID:      "opt-6",
			Date:          day,
			Kind:          portfolio.SellToClose,
			Ticker:        "XYZ",
			Shares:        f(1),
			OptionPutCall: portfolio.OptionPut,
			OptionStrike:  f(50),
			OptionExpire:  &expire,
		}
		// a same-day sellToOpen on a different contract that happens to print at 50 must not
		// be folded into the candidate's sell tally -- only plain stock buy/sell legs count.
		unrelatedOptionLeg := &portfolio.Transaction{
			UniqueID:      "opt-7",
			Date:          day,
			Kind:          portfolio.SellToOpen,
			Ticker:        "XYZ",
			Shares:        f(1),
			PricePerShare: f(50),
			OptionPutCall: portfolio.OptionCall,
			OptionStrike:  f(55),
			OptionExpire:  &expire,
		}

		out := portfolio.ResolveOptionLifecycle([]*portfolio.Transaction{optionLeg, unrelatedOptionLeg})
		Expect(out[0].Kind).To(Equal(portfolio.Expire))
	})

	It("leaves a close-side transaction with a real fill price untouched", func() {
		optionLeg := &portfolio.Transaction{
			UniqueID:      "opt-4",
			Date:          day,
			Kind:          portfolio.BuyToClose,
			Ticker:        "XYZ",
			Shares:        f(1),
			PricePerShare: f(2.5),
			OptionPutCall: portfolio.OptionPut,
			OptionStrike:  f(50),
			OptionExpire:  &expire,
		}

		out := portfolio.ResolveOptionLifecycle([]*portfolio.Transaction{optionLeg})
		Expect(out[0].Kind).To(Equal(portfolio.BuyToClose))
		Expect(out[0].Auto).To(BeFalse())
	})

	It("does not mutate the input slice's transactions in place", func() {
		optionLeg := &portfolio.Transaction{
			UniqueID:      "opt-5",
			Date:          day,
			Kind:          portfolio.SellToClose,
			Ticker:        "XYZ",
			Shares:        f(1),
			OptionPutCall: portfolio.OptionPut,
			OptionStrike:  f(50),
			OptionExpire:  &expire,
		}
		in := []*portfolio.Transaction{optionLeg}

		out := portfolio.ResolveOptionLifecycle(in)
		Expect(out[0]).NotTo(BeIdenticalTo(in[0]))
		Expect(in[0].Kind).To(Equal(portfolio.SellToClose))
	})
})
