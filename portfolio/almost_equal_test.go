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
	"math"

	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/types"
)

const tolerance = 1e-6

// almostEqual mirrors the source's checkSplit/checkDiv/checkFee/checkTotalValue helpers: equal
// within 1e-6, the tolerance spec.md's testable properties are stated at.
func almostEqual(expected float64) types.GomegaMatcher {
	return WithTransform(func(actual float64) float64 {
		return math.Abs(actual - expected)
	}, BeNumerically("<", tolerance))
}
