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

package data

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// CachingOracle decorates a PriceOracle with a redis-backed memoization layer, in the shape of
// the teacher's interval cache (get-or-fetch-and-set) but against the much smaller PriceOracle
// contract rather than a full Security/Metric/Interval model -- this core has no use for
// ranged-metric caching, only single-day price lookups.
type CachingOracle struct {
	rdb      *redis.Client
	upstream PriceOracle
	ttl      time.Duration
}

// NewCachingOracle wraps upstream with a redis cache. ttl of 0 means entries never expire.
func NewCachingOracle(rdb *redis.Client, upstream PriceOracle, ttl time.Duration) *CachingOracle {
	return &CachingOracle{rdb: rdb, upstream: upstream, ttl: ttl}
}

func (c *CachingOracle) key(ticker string, date time.Time) string {
	return fmt.Sprintf("pvreturns:price:%s:%s", ticker, date.Format("2006-01-02"))
}

// PriceOn implements PriceOracle. A redis error falls through to upstream rather than being
// treated as "missing" -- a cold or unreachable cache must never manufacture a missing-price
// day in the replay.
func (c *CachingOracle) PriceOn(ctx context.Context, ticker string, date time.Time) (float64, bool) {
	key := c.key(ticker, date)

	cached, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		price, perr := strconv.ParseFloat(cached, 64)
		if perr == nil {
			return price, true
		}
		log.Warn().Str("key", key).Err(perr).Msg("corrupt cached price, refetching")
	} else if err != redis.Nil {
		log.Warn().Str("key", key).Err(err).Msg("price cache unavailable, falling back to upstream")
	}

	price, ok := c.upstream.PriceOn(ctx, ticker, date)
	if !ok {
		return 0, false
	}

	if serr := c.rdb.Set(ctx, key, strconv.FormatFloat(price, 'f', -1, 64), c.ttl).Err(); serr != nil {
		log.Warn().Str("key", key).Err(serr).Msg("failed to populate price cache")
	}
	return price, true
}
