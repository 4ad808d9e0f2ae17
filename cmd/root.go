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
	"fmt"
	"os"

	"github.com/penny-vault/pv-returns/common"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Profile bool
var Trace bool

func init() {
	viper.BindEnv("secret_key", "PV_SECRET")
	rootCmd.PersistentFlags().String("secret-key", "", "Secret encryption key")
	viper.BindPFlag("secret_key", serveCmd.Flags().Lookup("secret-key"))

	viper.BindEnv("auth0.client_id", "AUTH0_CLIENT_ID")
	rootCmd.PersistentFlags().String("auth0-client-id", "", "Auth0 client id")
	viper.BindPFlag("auth0.client_id", serveCmd.Flags().Lookup("auth0-client-id"))

	viper.BindEnv("auth0.domain", "AUTH0_DOMAIN")
	rootCmd.PersistentFlags().String("auth0-domain", "", "Auth0 domain")
	viper.BindPFlag("auth0.domain", serveCmd.Flags().Lookup("auth0-domain"))

	viper.BindEnv("database.url", "DATABASE_URL")
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string")
	viper.BindPFlag("database.url", serveCmd.Flags().Lookup("database-url"))

	viper.BindEnv("cache.redis_url", "REDIS_URL")
	rootCmd.PersistentFlags().String("redis-url", "", "Redis connection string for the price cache")
	viper.BindPFlag("cache.redis_url", serveCmd.Flags().Lookup("redis-url"))

	viper.BindEnv("cache.ttl", "PV_RETURNS_CACHE_TTL_SECONDS")
	rootCmd.PersistentFlags().Int("cache-ttl-seconds", 0, "Price cache entry TTL in seconds, 0 means entries never expire")
	viper.BindPFlag("cache.ttl", serveCmd.Flags().Lookup("cache-ttl-seconds"))

	viper.BindEnv("replay.interval_minutes", "PV_RETURNS_REPLAY_INTERVAL_MINUTES")
	rootCmd.PersistentFlags().Int("replay-interval-minutes", 60, "Minutes between scheduled portfolio re-replays")
	viper.BindPFlag("replay.interval_minutes", serveCmd.Flags().Lookup("replay-interval-minutes"))

	viper.BindEnv("log.level", "PV_LOG_LEVEL")
	rootCmd.PersistentFlags().String("log-level", "warning", "Logging level")
	viper.BindPFlag("log.level", serveCmd.Flags().Lookup("log-level"))

	viper.BindEnv("log.report_caller", "PV_LOG_REPORT_CALLER")
	rootCmd.PersistentFlags().Bool("log-report-caller", false, "Log function name that called log statement")
	viper.BindPFlag("log.report_caller", serveCmd.Flags().Lookup("log-report-caller"))

	viper.BindEnv("log.output", "PV_LOG_OUTPUT")
	rootCmd.PersistentFlags().String("log-output", "stdout", "Write logs to specified output one of: file path, `stdout`, or `stderr`")
	viper.BindPFlag("log.output", serveCmd.Flags().Lookup("log-output"))

	viper.BindEnv("log.loki_url", "LOKI_URL")
	rootCmd.PersistentFlags().String("log-loki-url", "", "Loki server to send log messages to, if blank don't send to Loki")
	viper.BindPFlag("log.loki_url", serveCmd.Flags().Lookup("log-loki-url"))

	rootCmd.PersistentFlags().BoolVar(&Profile, "cpu-profile", false, "Run pprof and save in profile.out")
	rootCmd.PersistentFlags().BoolVar(&Trace, "trace", false, "Trace program execution and save in trace.out")
}

var rootCmd = &cobra.Command{
	Use:     "pvreturns",
	Version: common.CurrentVersion.String(),
	Short:   "pv-returns computes time-weighted returns for Penny Vault portfolios",
	Long:    `Replays a portfolio's transaction ledger into split/dividend/fee-adjusted cumulative TWR series.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
