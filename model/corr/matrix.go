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

package corr

import (
	"math"
	"slices"
)

// Score is a correlation with another item.
type Score struct {
	ItemId int64
	Value  float64
}

// Matrix is a square item by item correlation matrix stored row by row. NaN
// marks undefined correlations. It must not be modified after creation.
type Matrix struct {
	ItemIds []int64
	Values  []float64
	index   map[int64]int
}

// NewMatrix creates a matrix over ascending item ids.
func NewMatrix(itemIds []int64, values []float64) *Matrix {
	m := &Matrix{
		ItemIds: itemIds,
		Values:  values,
		index:   make(map[int64]int, len(itemIds)),
	}
	for i, id := range itemIds {
		m.index[id] = i
	}
	return m
}

func (m *Matrix) Len() int {
	return len(m.ItemIds)
}

// Contains returns true if the item is a column of the matrix.
func (m *Matrix) Contains(itemId int64) bool {
	_, ok := m.index[itemId]
	return ok
}

// Get returns the correlation between two items and whether it is defined.
func (m *Matrix) Get(a, b int64) (float64, bool) {
	i, ok := m.index[a]
	if !ok {
		return 0, false
	}
	j, ok := m.index[b]
	if !ok {
		return 0, false
	}
	value := m.Values[i*m.Len()+j]
	return value, !math.IsNaN(value)
}

// Column returns defined correlations of an item, itself included, ordered by
// item id.
func (m *Matrix) Column(itemId int64) []Score {
	i, ok := m.index[itemId]
	if !ok {
		return nil
	}
	n := m.Len()
	var scores []Score
	for j, value := range m.Values[i*n : (i+1)*n] {
		if !math.IsNaN(value) {
			scores = append(scores, Score{ItemId: m.ItemIds[j], Value: value})
		}
	}
	return scores
}

// Pairs returns the number of defined correlations between distinct items.
func (m *Matrix) Pairs() int {
	n, count := m.Len(), 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if !math.IsNaN(m.Values[i*n+j]) {
				count++
			}
		}
	}
	return count
}

// Equal returns true if both matrices have the same items and their
// correlations differ at most by tolerance.
func (m *Matrix) Equal(other *Matrix, tolerance float64) bool {
	if !slices.Equal(m.ItemIds, other.ItemIds) || len(m.Values) != len(other.Values) {
		return false
	}
	for i, a := range m.Values {
		b := other.Values[i]
		if math.IsNaN(a) != math.IsNaN(b) {
			return false
		}
		if !math.IsNaN(a) && math.Abs(a-b) > tolerance {
			return false
		}
	}
	return true
}
