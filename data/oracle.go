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

// Package data defines the stated interface the return-computation core requires of its price
// collaborator, plus two small implementations. It deliberately does not parse broker files, a
// price/dividend/split database, or any of the other out-of-scope external collaborators --
// those are assumed to exist elsewhere and speak PriceOracle.
package data

import (
	"context"
	"time"
)

// PriceOracle answers "what did ticker trade at on date" for the replay driver. A false ok
// means no price is known for that ticker/date; the caller (portfolio.Replay) treats that as a
// recoverable ErrMissingPrice condition, never a fatal one.
type PriceOracle interface {
	PriceOn(ctx context.Context, ticker string, date time.Time) (price float64, ok bool)
}

// StaticOracle is an in-memory PriceOracle backed by a fixed table, used by tests and by
// offline/CLI replay where prices are supplied up front rather than fetched live.
type StaticOracle struct {
	prices map[string]map[string]float64 // ticker -> "2006-01-02" -> price
}

// NewStaticOracle returns an empty StaticOracle; populate it with Set.
func NewStaticOracle() *StaticOracle {
	return &StaticOracle{prices: make(map[string]map[string]float64)}
}

// Set records ticker's price on date.
func (s *StaticOracle) Set(ticker string, date time.Time, price float64) {
	byDate, ok := s.prices[ticker]
	if !ok {
		byDate = make(map[string]float64)
		s.prices[ticker] = byDate
	}
	byDate[date.Format("2006-01-02")] = price
}

// PriceOn implements PriceOracle.
func (s *StaticOracle) PriceOn(_ context.Context, ticker string, date time.Time) (float64, bool) {
	byDate, ok := s.prices[ticker]
	if !ok {
		return 0, false
	}
	price, ok := byDate[date.Format("2006-01-02")]
	return price, ok
}
