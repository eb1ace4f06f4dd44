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
	"cmp"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/otakudb/otakudb/dataset"
)

// Entry is a cell of a sparse vector.
type Entry struct {
	Index int32
	Value float64
}

// Pivot is a sparse user by item table of mean ratings. Columns hold the
// ratings of each item ordered by user; Rows hold the ratings of each user
// ordered by item.
type Pivot struct {
	UserIds []int64
	ItemIds []int64
	Columns [][]Entry
	Rows    [][]Entry
}

// Count returns the number of non-empty cells.
func (p *Pivot) Count() int {
	count := 0
	for _, column := range p.Columns {
		count += len(column)
	}
	return count
}

// PopularItems returns items rated by more than threshold distinct users.
func PopularItems(ratings []dataset.Rating, threshold int) mapset.Set[int64] {
	raters := make(map[int64]mapset.Set[int64])
	for _, rating := range ratings {
		users, ok := raters[rating.ItemId]
		if !ok {
			users = mapset.NewThreadUnsafeSet[int64]()
			raters[rating.ItemId] = users
		}
		users.Add(rating.UserId)
	}
	popular := mapset.NewThreadUnsafeSet[int64]()
	for itemId, users := range raters {
		if users.Cardinality() > threshold {
			popular.Add(itemId)
		}
	}
	return popular
}

type cell struct {
	userId int64
	itemId int64
}

type accumulator struct {
	sum   float64
	count int
}

// BuildPivot builds the rating table of popular items. Duplicate ratings of a
// user on an item collapse to their mean.
func BuildPivot(ratings []dataset.Rating, popular mapset.Set[int64]) *Pivot {
	cells := make(map[cell]accumulator)
	for _, rating := range ratings {
		if !popular.Contains(rating.ItemId) {
			continue
		}
		key := cell{userId: rating.UserId, itemId: rating.ItemId}
		acc := cells[key]
		acc.sum += float64(rating.Value)
		acc.count++
		cells[key] = acc
	}
	// assign positions in ascending id order
	userSet := mapset.NewThreadUnsafeSet[int64]()
	itemSet := mapset.NewThreadUnsafeSet[int64]()
	for key := range cells {
		userSet.Add(key.userId)
		itemSet.Add(key.itemId)
	}
	pivot := &Pivot{
		UserIds: userSet.ToSlice(),
		ItemIds: itemSet.ToSlice(),
	}
	slices.Sort(pivot.UserIds)
	slices.Sort(pivot.ItemIds)
	userIndex := make(map[int64]int, len(pivot.UserIds))
	for i, id := range pivot.UserIds {
		userIndex[id] = i
	}
	itemIndex := make(map[int64]int, len(pivot.ItemIds))
	for i, id := range pivot.ItemIds {
		itemIndex[id] = i
	}
	// fill cells
	pivot.Columns = make([][]Entry, len(pivot.ItemIds))
	pivot.Rows = make([][]Entry, len(pivot.UserIds))
	for key, acc := range cells {
		u, i := userIndex[key.userId], itemIndex[key.itemId]
		mean := acc.sum / float64(acc.count)
		pivot.Columns[i] = append(pivot.Columns[i], Entry{Index: int32(u), Value: mean})
		pivot.Rows[u] = append(pivot.Rows[u], Entry{Index: int32(i), Value: mean})
	}
	for _, entries := range pivot.Columns {
		sortEntries(entries)
	}
	for _, entries := range pivot.Rows {
		sortEntries(entries)
	}
	return pivot
}

func sortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		return cmp.Compare(a.Index, b.Index)
	})
}
