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

package cmd

import (
	"context"
	"os"
	"os/signal"
	"runtime/pprof"
	"runtime/trace"
	"time"

	"github.com/penny-vault/pv-returns/common"
	"github.com/penny-vault/pv-returns/data"
	"github.com/penny-vault/pv-returns/database"
	"github.com/penny-vault/pv-returns/handler"
	"github.com/penny-vault/pv-returns/jwks"
	"github.com/penny-vault/pv-returns/loki"
	"github.com/penny-vault/pv-returns/middleware"
	"github.com/penny-vault/pv-returns/observability/opentelemetry"
	"github.com/penny-vault/pv-returns/portfolio"
	"github.com/penny-vault/pv-returns/router"

	"github.com/go-co-op/gocron"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog/log"
	logrus "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	serveCmd.Flags().Int("port", 3000, "Port to bind the HTTP server to")
	viper.BindEnv("server.port", "PORT")
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the pv-returns HTTP server",
	Long:  `Serves the read-only performance/holdings API and runs the periodic replay scheduler described in spec.md §5.`,
	Run: func(cmd *cobra.Command, args []string) {
		if Profile {
			f, err := os.Create("profile.out")
			if err != nil {
				log.Fatal().Err(err).Msg("could not create profile.out")
			}
			defer f.Close()
			if err := pprof.StartCPUProfile(f); err != nil {
				log.Fatal().Err(err).Msg("could not start cpu profile")
			}
			defer pprof.StopCPUProfile()
		}

		if Trace {
			f, err := os.Create("trace.out")
			if err != nil {
				log.Fatal().Err(err).Msg("could not create trace.out")
			}
			defer f.Close()
			if err := trace.Start(f); err != nil {
				log.Fatal().Err(err).Msg("could not start trace")
			}
			defer trace.Stop()
		}

		common.SetupLogging()

		if lokiURL := viper.GetString("log.loki_url"); lokiURL != "" {
			hook, err := loki.New(lokiURL, 102400, 1)
			if err != nil {
				log.Warn().Err(err).Msg("could not configure loki log shipping")
			} else {
				logrus.AddHook(hook)
			}
		}

		shutdownTracer, err := opentelemetry.Setup()
		if err != nil {
			log.Fatal().Err(err).Msg("could not configure opentelemetry")
		}

		if err := database.Connect(); err != nil {
			log.Fatal().Err(err).Msg("could not connect to database")
		}

		oracle := buildOracle()
		handler.Oracle = oracle

		scheduler := startReplayScheduler(oracle)

		app := fiber.New()
		app.Use(cors.New(cors.Config{
			AllowOrigins: viper.GetString("server.cors_origins"),
		}))
		app.Use(middleware.NewLogger())

		jwksAutoRefresh, jwksUrl := jwks.SetupJWKS()
		router.SetupRoutes(app, jwksAutoRefresh, jwksUrl)

		idleConnsClosed := make(chan struct{})
		go func() {
			sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			<-sigCtx.Done()

			log.Info().Msg("shutting down server")
			scheduler.Stop()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := shutdownTracer(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("could not cleanly shut down tracer")
			}

			if err := app.Shutdown(); err != nil {
				log.Error().Err(err).Msg("could not cleanly shut down server")
			}
			close(idleConnsClosed)
		}()

		if err := app.Listen(":" + viper.GetString("server.port")); err != nil {
			log.Error().Err(err).Msg("server stopped")
		}

		<-idleConnsClosed
	},
}

// buildOracle wires a redis-backed CachingOracle when a redis URL is configured, matching the
// fallback-to-upstream contract data.CachingOracle documents; offline deployments with no redis
// configured fall back to an empty StaticOracle, which simply records every day as missing-price
// rather than failing the replay outright.
func buildOracle() data.PriceOracle {
	upstream := data.NewStaticOracle()

	if viper.GetString("cache.redis_url") == "" {
		log.Warn().Msg("no redis URL configured; serving with an empty in-memory price oracle")
		return upstream
	}

	opt, err := redis.ParseURL(viper.GetString("cache.redis_url"))
	if err != nil {
		log.Fatal().Err(err).Msg("could not parse redis URL")
	}
	rdb := redis.NewClient(opt)
	ttl := time.Duration(viper.GetInt("cache.ttl")) * time.Second
	return data.NewCachingOracle(rdb, upstream, ttl)
}

// startReplayScheduler runs portfolio.Replay over every stored ledger on a fixed interval --
// spec.md §5's refresh model ("re-running the replay after new data is the refresh model") --
// so that the next read request finds a warm price cache. Read requests still run their own
// replay inline (see handler.runReplay).
func startReplayScheduler(oracle data.PriceOracle) *gocron.Scheduler {
	scheduler := gocron.NewScheduler(common.GetTimezone())

	minutes := viper.GetInt("replay.interval_minutes")
	if minutes <= 0 {
		minutes = 60
	}

	if _, err := scheduler.Every(minutes).Minutes().Do(func() {
		replayAllPortfolios(oracle)
	}); err != nil {
		log.Fatal().Err(err).Msg("could not schedule replay job")
	}

	scheduler.StartAsync()
	return scheduler
}

func replayAllPortfolios(oracle data.PriceOracle) {
	ctx := context.Background()

	refs, err := database.ListPortfolios(ctx)
	if err != nil {
		log.Error().Err(err).Msg("could not list portfolios for scheduled replay")
		return
	}

	for _, ref := range refs {
		trxs, err := database.LoadTransactions(ctx, ref.UserID, ref.PortfolioID)
		if err != nil {
			log.Error().Err(err).Str("PortfolioID", ref.PortfolioID).Msg("could not load transactions for scheduled replay")
			continue
		}
		if len(trxs) == 0 {
			continue
		}

		replay := portfolio.NewReplay()
		if _, err := replay.Run(ctx, trxs, oracle, time.Now()); err != nil {
			log.Error().Err(err).Str("PortfolioID", ref.PortfolioID).Msg("scheduled replay failed")
		}
	}
}
