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

// Package database persists and loads the user's own transaction ledger -- the
// fully-typed Transaction stream spec.md §1 names as the core's only real input. It is
// not the out-of-scope price/dividend/split database; it never stores a quote.
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/penny-vault/pv-returns/portfolio"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// PgxIface is the subset of *pgxpool.Pool this package needs, narrow enough that tests can
// substitute a pgxmock connection for it via SetPool.
type PgxIface interface {
	Begin(context.Context) (pgx.Tx, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
}

var pool PgxIface

// SetPool overrides the connection pool, for tests that drive this package against a
// pgxmock.PgxConnIface rather than a live Postgres instance.
func SetPool(p PgxIface) {
	pool = p
}

func createUser(userID string) error {
	if userID == "" {
		return errors.New("userID cannot be an empty string")
	}

	trx, err := pool.Begin(context.Background())
	if err != nil {
		log.Error().Err(err).Str("UserID", userID).Msg("could not create new transaction")
		return err
	}

	// the default role is pvreturns, which only has enough privileges to create new
	// per-user roles and switch to them; any real work runs with a user role that limits
	// access to only that user's rows.
	if _, err := trx.Exec(context.Background(), "SET ROLE pvreturns"); err != nil {
		log.Error().Err(err).Str("UserID", userID).Msg("could not switch to pvreturns role")
		trx.Rollback(context.Background())
		return err
	}

	// NOTE: pgx can only sanitize select/insert/update/delete queries, so CREATE ROLE/GRANT
	// identifiers are sanitized by hand here.
	ident := pgx.Identifier{userID}
	sql := fmt.Sprintf("CREATE ROLE %s WITH nologin IN ROLE pvuser;", ident.Sanitize())
	if _, err := trx.Exec(context.Background(), sql); err != nil {
		trx.Rollback(context.Background())
		log.Error().Err(err).Str("UserID", userID).Str("Query", sql).Msg("failed to create role")
		return err
	}

	sql = fmt.Sprintf("GRANT %s TO pvreturns;", ident.Sanitize())
	if _, err := trx.Exec(context.Background(), sql); err != nil {
		trx.Rollback(context.Background())
		log.Error().Err(err).Str("UserID", userID).Str("Query", sql).Msg("failed to grant privileges to role")
		return err
	}

	if err := trx.Commit(context.Background()); err != nil {
		trx.Rollback(context.Background())
		log.Error().Err(err).Str("UserID", userID).Msg("failed to commit changes")
		return err
	}

	return nil
}

// Connect opens the connection pool used by every subsequent call in this package.
func Connect() error {
	myPool, err := pgxpool.Connect(context.Background(), viper.GetString("database.url"))
	if err != nil {
		return err
	}
	if err := myPool.Ping(context.Background()); err != nil {
		return err
	}
	pool = myPool
	return nil
}

// TrxForUser returns a transaction with the session role switched to userID, creating the
// role on first use. Every Save/Load call runs inside row-level security scoped to one user.
func TrxForUser(userID string) (pgx.Tx, error) {
	trx, err := pool.Begin(context.Background())
	if err != nil {
		return nil, err
	}

	ident := pgx.Identifier{userID}
	sql := fmt.Sprintf("SET ROLE %s", ident.Sanitize())
	if _, err := trx.Exec(context.Background(), sql); err != nil {
		log.Warn().Err(err).Str("UserID", userID).Msg("role does not exist")
		trx.Rollback(context.Background())
		if err := createUser(userID); err != nil {
			return nil, err
		}
		return TrxForUser(userID)
	}

	return trx, nil
}

// transactionColumns is the persisted-columns list of spec.md §6, in SaveTransactions/
// LoadTransactions scan order.
var transactionColumns = []string{
	"unique_id", "ticker", "ticker2", "type", "sub_type", "date", "shares", "price_per_share",
	"fee", "total", "option_strike", "option_expire", "edited", "deleted", "auto",
}

// LoadTransactions returns every transaction belonging to portfolioID, deleted ones included,
// in whatever order the store returns them -- portfolio.Replay.Run skips deleted transactions
// and sorts its own input per spec.md §4.D, so callers never need to filter or pre-sort.
func LoadTransactions(ctx context.Context, userID, portfolioID string) ([]*portfolio.Transaction, error) {
	trx, err := TrxForUser(userID)
	if err != nil {
		return nil, err
	}

	sql := fmt.Sprintf(`SELECT %s FROM portfolio_transactions WHERE portfolio_id=$1`,
		columnList())
	rows, err := trx.Query(ctx, sql, portfolioID)
	if err != nil {
		trx.Rollback(ctx)
		return nil, err
	}
	defer rows.Close()

	var out []*portfolio.Transaction
	for rows.Next() {
		trx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, trx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, trx.Commit(ctx)
}

// SaveTransactions upserts trxs into the ledger for portfolioID, keyed by UniqueID. It is
// the only writer the core's refresh model needs (spec.md §5: "re-running the replay after
// new data is the refresh model -- incremental update is not a core concern").
func SaveTransactions(ctx context.Context, userID, portfolioID string, trxs []*portfolio.Transaction) error {
	AssignMissingIDs(trxs)

	dbTrx, err := TrxForUser(userID)
	if err != nil {
		return err
	}

	upsertSQL := fmt.Sprintf(`INSERT INTO portfolio_transactions (user_id, portfolio_id, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (unique_id) DO UPDATE SET
			ticker=EXCLUDED.ticker, ticker2=EXCLUDED.ticker2, type=EXCLUDED.type,
			sub_type=EXCLUDED.sub_type, date=EXCLUDED.date, shares=EXCLUDED.shares,
			price_per_share=EXCLUDED.price_per_share, fee=EXCLUDED.fee, total=EXCLUDED.total,
			option_strike=EXCLUDED.option_strike, option_expire=EXCLUDED.option_expire,
			edited=EXCLUDED.edited, deleted=EXCLUDED.deleted, auto=EXCLUDED.auto`, columnList())

	for _, t := range trxs {
		_, err := dbTrx.Exec(ctx, upsertSQL, userID, portfolioID,
			t.UniqueID, t.Ticker, nullableString(t.Ticker2), uint8(t.Kind), subTypeOf(t),
			t.Date, t.Shares, t.PricePerShare, t.Fee, t.Total, t.OptionStrike, t.OptionExpire,
			t.Edited, t.Deleted, t.Auto)
		if err != nil {
			log.Error().Err(err).Str("UniqueID", t.UniqueID).Msg("failed to save transaction")
			dbTrx.Rollback(ctx)
			return err
		}
	}

	return dbTrx.Commit(ctx)
}

// PortfolioRef identifies one stored ledger the scheduler should re-replay.
type PortfolioRef struct {
	UserID      string
	PortfolioID string
}

// ListPortfolios enumerates every (user, portfolio) pair with at least one stored
// transaction, for the periodic re-replay scheduler of spec.md §5's refresh model. It runs
// as the pvreturns role directly rather than through TrxForUser, since the scheduler has no
// single calling user to scope to.
func ListPortfolios(ctx context.Context) ([]PortfolioRef, error) {
	rows, err := pool.Query(ctx, `SELECT DISTINCT user_id, portfolio_id FROM portfolio_transactions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PortfolioRef
	for rows.Next() {
		var ref PortfolioRef
		if err := rows.Scan(&ref.UserID, &ref.PortfolioID); err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

func columnList() string {
	out := transactionColumns[0]
	for _, c := range transactionColumns[1:] {
		out += ", " + c
	}
	return out
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// subTypeOf packs whichever sub-type field is meaningful for t.Kind -- dividend tax class or
// option put/call -- into the single persisted sub_type column (spec.md §3: "optional
// subType (dividend tax class or option put/call)").
func subTypeOf(t *portfolio.Transaction) uint8 {
	if t.IsOption() {
		return uint8(t.OptionPutCall)
	}
	return uint8(t.DividendSubType)
}

// rowScanner abstracts pgx.Rows so scanTransaction is exercised by both pgxmock-backed unit
// tests and the real pool.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*portfolio.Transaction, error) {
	t := &portfolio.Transaction{}
	var ticker2 *string
	var kind, subType uint8

	if err := row.Scan(&t.UniqueID, &t.Ticker, &ticker2, &kind, &subType, &t.Date, &t.Shares,
		&t.PricePerShare, &t.Fee, &t.Total, &t.OptionStrike, &t.OptionExpire, &t.Edited,
		&t.Deleted, &t.Auto); err != nil {
		return nil, err
	}

	t.Kind = portfolio.TransactionKind(kind)
	if ticker2 != nil {
		t.Ticker2 = *ticker2
	}
	if t.IsOption() {
		t.OptionPutCall = portfolio.OptionPutCall(subType)
	} else {
		t.DividendSubType = portfolio.DividendSubType(subType)
	}

	return t, nil
}
