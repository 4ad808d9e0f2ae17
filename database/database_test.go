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

package database_test

import (
	"context"
	"time"

	"github.com/jackc/pgconn"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pashagolub/pgxmock"

	"github.com/penny-vault/pv-returns/database"
	"github.com/penny-vault/pv-returns/pgxmockhelper"
	"github.com/penny-vault/pv-returns/portfolio"
)

var _ = Describe("Database", func() {
	var (
		dbPool pgxmock.PgxConnIface
		err    error
	)

	BeforeEach(func() {
		dbPool, err = pgxmock.NewConn()
		Expect(err).To(BeNil())
		database.SetPool(dbPool)
	})

	Describe("LoadTransactions", func() {
		Context("when the caller's role already exists", func() {
			var trxs []*portfolio.Transaction

			BeforeEach(func() {
				shares := 10.0
				price := 101.50

				dbPool.ExpectBegin()
				dbPool.ExpectExec("SET ROLE").WillReturnResult(pgconn.CommandTag("SET ROLE"))
				dbPool.ExpectQuery("SELECT").WillReturnRows(
					pgxmock.NewRows([]string{"unique_id", "ticker", "ticker2", "type", "sub_type",
						"date", "shares", "price_per_share", "fee", "total", "option_strike",
						"option_expire", "edited", "deleted", "auto"}).
						AddRow("trx-1", "VTI", "", uint8(portfolio.Buy), uint8(0),
							time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC), &shares, &price,
							(*float64)(nil), (*float64)(nil), (*float64)(nil), (*time.Time)(nil),
							false, false, false))
				dbPool.ExpectCommit()

				trxs, err = database.LoadTransactions(context.Background(), "user-1", "portfolio-1")
			})

			It("should not error", func() {
				Expect(err).To(BeNil())
			})

			It("should return the stored transaction", func() {
				Expect(trxs).To(HaveLen(1))
				Expect(trxs[0].UniqueID).To(Equal("trx-1"))
				Expect(trxs[0].Ticker).To(Equal("VTI"))
				Expect(trxs[0].Kind).To(Equal(portfolio.Buy))
				Expect(trxs[0].SharesValue()).To(Equal(10.0))
			})
		})
	})

	Describe("ListPortfolios", func() {
		It("enumerates the distinct user/portfolio pairs with stored transactions", func() {
			rows, err := pgxmockhelper.RowsFromCSV("testdata/portfolios.csv", nil)
			Expect(err).To(BeNil())
			dbPool.ExpectQuery("SELECT DISTINCT").WillReturnRows(rows)

			refs, err := database.ListPortfolios(context.Background())
			Expect(err).To(BeNil())
			Expect(refs).To(HaveLen(2))
			Expect(refs[0].UserID).To(Equal("user-1"))
			Expect(refs[1].PortfolioID).To(Equal("portfolio-7"))
		})
	})

	Describe("AssignMissingIDs", func() {
		It("leaves an already-identified transaction untouched", func() {
			shares := 10.0
			trx := &portfolio.Transaction{UniqueID: "trx-1", Ticker: "VTI", Shares: &shares}
			database.AssignMissingIDs([]*portfolio.Transaction{trx})
			Expect(trx.UniqueID).To(Equal("trx-1"))
		})

		It("derives the same ID for two otherwise-identical transactions", func() {
			shares := 10.0
			price := 101.50
			date := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)

			a := &portfolio.Transaction{Ticker: "VTI", Kind: portfolio.Buy, Date: date, Shares: &shares, PricePerShare: &price}
			b := &portfolio.Transaction{Ticker: "VTI", Kind: portfolio.Buy, Date: date, Shares: &shares, PricePerShare: &price}

			database.AssignMissingIDs([]*portfolio.Transaction{a, b})
			Expect(a.UniqueID).NotTo(BeEmpty())
			Expect(a.UniqueID).To(Equal(b.UniqueID))
		})

		It("derives a different ID when the date differs", func() {
			shares := 10.0
			price := 101.50

			a := &portfolio.Transaction{Ticker: "VTI", Kind: portfolio.Buy,
				Date: time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC), Shares: &shares, PricePerShare: &price}
			b := &portfolio.Transaction{Ticker: "VTI", Kind: portfolio.Buy,
				Date: time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC), Shares: &shares, PricePerShare: &price}

			database.AssignMissingIDs([]*portfolio.Transaction{a, b})
			Expect(a.UniqueID).NotTo(Equal(b.UniqueID))
		})
	})
})
