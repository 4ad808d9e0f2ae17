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

package database

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/penny-vault/pv-returns/portfolio"
	"github.com/zeebo/blake3"
)

// NewTransactionID mints a fresh random unique ID. Its only caller is AssignMissingIDs, which
// falls back to it when transactionSourceID fails; ResolveOptionLifecycle keeps the
// candidate's existing UniqueID and only changes Kind/Auto.
func NewTransactionID() string {
	return uuid.New().String()
}

// transactionSourceID calculates a 16-byte blake3 hash over the fields that make a broker-fed
// transaction reproducible: date, ticker, kind, price, shares, and total. Two re-imports of the
// same broker row hash to the same ID, which is what lets SaveTransactions dedup on conflict
// without the importer (out of scope) having to track its own identity scheme. Mirrors the
// teacher's computeTransactionSourceID, narrowed to the fields this core's Transaction carries.
func transactionSourceID(t *portfolio.Transaction) (string, error) {
	h := blake3.New()

	d, err := t.Date.UTC().MarshalText()
	if err != nil {
		return "", err
	}
	h.Write(d)

	h.Write([]byte(t.Ticker))
	h.Write([]byte{byte(t.Kind)})
	h.Write([]byte(fmt.Sprintf("%.5f", t.PriceValue())))
	h.Write([]byte(fmt.Sprintf("%.5f", t.SharesValue())))
	h.Write([]byte(fmt.Sprintf("%.5f", t.TotalValue())))

	digest := h.Digest()
	buf := make([]byte, 16)
	n, err := digest.Read(buf)
	if err != nil {
		return "", err
	}
	if n != 16 {
		return "", errors.New("transactionSourceID: couldn't read 16 bytes from digest")
	}

	id, err := uuid.FromBytes(buf)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// AssignMissingIDs fills in UniqueID (via transactionSourceID, falling back to a random
// NewTransactionID on hash failure) for any transaction the importer handed over without one --
// the importer is an out-of-scope collaborator, but a stable dedup key for what it produces is
// this package's job, not the core's.
func AssignMissingIDs(trxs []*portfolio.Transaction) {
	for _, t := range trxs {
		if t.UniqueID != "" {
			continue
		}
		id, err := transactionSourceID(t)
		if err != nil {
			id = NewTransactionID()
		}
		t.UniqueID = id
	}
}
