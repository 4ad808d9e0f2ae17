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

package router

import (
	"github.com/penny-vault/pv-returns/handler"
	"github.com/penny-vault/pv-returns/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/lestrrat-go/jwx/jwk"
)

// SetupRoutes mounts the read-only surface over the replay driver's output. Transaction
// import/editing is an external collaborator per spec.md §1's Non-goals, so there is
// deliberately no write endpoint here beyond what the scheduler needs internally.
func SetupRoutes(app *fiber.App, jwks *jwk.AutoRefresh, jwksUrl string) {
	api := app.Group("/v1", logger.New())
	api.Get("/", handler.Ping)

	portfolios := api.Group("/portfolios", middleware.PVAuth(jwks, jwksUrl))
	portfolios.Get("/:id/performance", handler.GetPortfolioPerformance)
	portfolios.Get("/:id/holdings", handler.GetPortfolioHoldings)
}
