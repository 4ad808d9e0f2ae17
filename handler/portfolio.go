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

package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/penny-vault/pv-returns/data"
	"github.com/penny-vault/pv-returns/database"
	"github.com/penny-vault/pv-returns/observability/opentelemetry"
	"github.com/penny-vault/pv-returns/portfolio"
)

var tracer = otel.Tracer(opentelemetry.Name)

// Oracle is the price collaborator every performance/holdings request replays against. It is
// set once at startup (see cmd/serve.go) -- the core itself never constructs one, per
// spec.md §1's "out of scope" boundary.
var Oracle data.PriceOracle

// PerformanceResponse is the JSON rendering of a replay's most recent DailyMeasurement.
type PerformanceResponse struct {
	AsOf           int64   `json:"asOf"`
	SplitReturn    float64 `json:"splitReturn"`
	DividendReturn float64 `json:"dividendReturn"`
	FeeReturn      float64 `json:"feeReturn"`
	TotalValue     float64 `json:"totalValue"`
}

// HoldingResponse is the JSON rendering of one portfolio.Holding.
type HoldingResponse struct {
	Ticker string  `json:"ticker"`
	Shares float64 `json:"shares"`
	Short  bool    `json:"short"`
	Basis  float64 `json:"basis"`
}

// runReplay loads portfolioID's transaction ledger and replays it through today, per
// spec.md §4.D. This is the refresh model of spec.md §5: every request re-derives the
// series from the stored transactions rather than reading an incrementally-updated cache.
func runReplay(c *fiber.Ctx, portfolioID string) (*portfolio.Result, error) {
	userID := c.Locals("userID").(string)

	ctx, span := tracer.Start(c.Context(), "handler.runReplay",
		trace.WithAttributes(opentelemetry.SpanAttributesFromFiber(c)...))
	defer span.End()

	trxs, err := database.LoadTransactions(ctx, userID, portfolioID)
	if err != nil {
		log.Error().Err(err).Str("PortfolioID", portfolioID).Msg("could not load transactions")
		return nil, fiber.ErrInternalServerError
	}
	if len(trxs) == 0 {
		return nil, fiber.ErrNotFound
	}

	replay := portfolio.NewReplay()
	result, err := replay.Run(ctx, trxs, Oracle, time.Now())
	if err != nil {
		log.Error().Err(err).Str("PortfolioID", portfolioID).Msg("replay failed")
		return nil, fiber.ErrUnprocessableEntity
	}

	return result, nil
}

// GetPortfolioPerformance returns the three cumulative return series plus current total
// portfolio value (spec.md §6 "Return series output") as of the latest replayed day.
func GetPortfolioPerformance(c *fiber.Ctx) error {
	portfolioID := c.Params("id")

	result, err := runReplay(c, portfolioID)
	if err != nil {
		return err
	}
	if len(result.Measurements) == 0 {
		return fiber.ErrNotFound
	}

	last := result.Measurements[len(result.Measurements)-1]
	return c.JSON(PerformanceResponse{
		AsOf:           last.Date.Unix(),
		SplitReturn:    last.SplitReturn,
		DividendReturn: last.DividendReturn,
		FeeReturn:      last.FeeReturn,
		TotalValue:     last.TotalValue,
	})
}

// GetPortfolioHoldings returns the current per-position holdings and average cost basis
// (spec.md §1: "per-lot cost basis, and per-position holdings").
func GetPortfolioHoldings(c *fiber.Ctx) error {
	portfolioID := c.Params("id")

	result, err := runReplay(c, portfolioID)
	if err != nil {
		return err
	}

	holdings := make([]HoldingResponse, 0, len(result.Holdings))
	for _, h := range result.Holdings {
		holdings = append(holdings, HoldingResponse{
			Ticker: h.Ticker,
			Shares: h.Shares,
			Short:  h.Short,
			Basis:  h.Basis,
		})
	}

	return c.JSON(holdings)
}
