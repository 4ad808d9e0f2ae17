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

var _ = Describe("BasisLedger", func() {
	It("reports a share-weighted average across multiple lots", func() {
		b := portfolio.NewBasisLedger()
		b.Add("A", 0, 10, 100)
		b.Add("A", 1, 10, 110)
		Expect(b.Basis("A")).To(almostEqual(105))
		Expect(b.TotalBasis("A")).To(almostEqual(2100))
	})

	It("consumes lots FIFO, oldest first", func() {
		b := portfolio.NewBasisLedger()
		b.Add("A", 0, 10, 100)
		b.Add("A", 1, 10, 110)

		shortfall, err := b.Remove("A", 12)
		Expect(err).NotTo(HaveOccurred())
		Expect(shortfall).To(almostEqual(0))
		// the day-0 lot is fully consumed and 2 shares come out of the day-1 lot, leaving only
		// its other 8 shares -- so the new weighted average basis is 110.
		Expect(b.Basis("A")).To(almostEqual(110))
	})

	It("returns a positive shortfall when removing more than is held", func() {
		b := portfolio.NewBasisLedger()
		b.Add("A", 0, 10, 100)

		shortfall, err := b.Remove("A", 15)
		Expect(err).NotTo(HaveOccurred())
		Expect(shortfall).To(almostEqual(5))
		Expect(b.Basis("A")).To(almostEqual(0))
	})

	It("fails removing from a ticker that was never added", func() {
		b := portfolio.NewBasisLedger()
		_, err := b.Remove("A", 1)
		Expect(err).To(MatchError(portfolio.ErrInvalidBasisOperation))
	})

	It("fails removing a negative share count", func() {
		b := portfolio.NewBasisLedger()
		b.Add("A", 0, 10, 100)
		_, err := b.Remove("A", -1)
		Expect(err).To(MatchError(portfolio.ErrInvalidBasisOperation))
	})

	It("scales shares and price inversely across a split", func() {
		b := portfolio.NewBasisLedger()
		b.Add("A", 0, 10, 100)
		b.ApplySplit("A", 2.0)
		Expect(b.Basis("A")).To(almostEqual(50))
		Expect(b.TotalBasis("A")).To(almostEqual(1000))
	})
})
