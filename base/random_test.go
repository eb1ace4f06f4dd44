// Copyright 2026 otakudb Project Authors
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

package base

import (
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
)

func TestRandomGenerator_Sample(t *testing.T) {
	excludeSet := mapset.NewSet(0, 1, 2, 3, 4)
	rng := NewRandomGenerator(0)
	for i := 1; i <= 10; i++ {
		sampled := rng.Sample(0, 10, i, excludeSet)
		assert.LessOrEqual(t, len(sampled), 5)
		assert.Equal(t, len(sampled), mapset.NewSet(sampled...).Cardinality())
		for j := range sampled {
			assert.False(t, excludeSet.Contains(sampled[j]))
		}
	}
}

func TestRandomGenerator_SampleAll(t *testing.T) {
	rng := NewRandomGenerator(0)
	assert.Equal(t, []int{0, 1, 2}, rng.Sample(0, 3, 100))
	assert.Empty(t, rng.Sample(0, 0, 100))
}

func TestRandomGenerator_Seed(t *testing.T) {
	a := NewRandomGenerator(42).Sample(0, 1000, 10)
	b := NewRandomGenerator(42).Sample(0, 1000, 10)
	assert.Equal(t, a, b)
	assert.Len(t, a, 10)
}
