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

package logics

import (
	"math"
	"slices"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/otakudb/otakudb/base/heap"
	"github.com/otakudb/otakudb/base/log"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// ScoredItem is a recommended item.
type ScoredItem struct {
	ItemId int64   `json:"id"`
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
}

// RatedItem is an input rating that matched the model.
type RatedItem struct {
	ItemId int64   `json:"id"`
	Name   string  `json:"name"`
	Rating float64 `json:"rating"`
}

type Recommendation struct {
	Items []ScoredItem
	Input []RatedItem
}

type Recommender struct {
	cache *ModelCache
	topN  int
}

func NewRecommender(cache *ModelCache, topN int) *Recommender {
	return &Recommender{cache: cache, topN: topN}
}

// Recommend ranks items by the sum of their correlations with rated items,
// each weighted by its rating. Rated items are never recommended. Equal
// scores are ordered by ascending item id.
func (r *Recommender) Recommend(ratings map[int64]float64) (result *Recommendation, err error) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = errors.WithType(errors.Errorf("recommender panic: %v", p), ErrRecommendation)
		}
		switch {
		case err == nil:
			RecommendTotal.WithLabelValues("ok").Inc()
			RecommendSeconds.Observe(time.Since(start).Seconds())
		case errors.Is(err, ErrRecommendation):
			RecommendTotal.WithLabelValues("failed").Inc()
		default:
			RecommendTotal.WithLabelValues("rejected").Inc()
		}
	}()

	snapshot, err := r.cache.Load()
	if err != nil {
		return nil, errors.Trace(err)
	}
	matrix := snapshot.Model.Matrix
	// discard unknown items
	rated := mapset.NewThreadUnsafeSet[int64]()
	for itemId := range ratings {
		if matrix.Contains(itemId) {
			rated.Add(itemId)
		}
	}
	if rated.Cardinality() == 0 {
		return nil, errors.Annotatef(ErrNoValidItems, "none of %d items in model", len(ratings))
	}

	// collect scores
	scores := make(map[int64]float64)
	for _, itemId := range sortedIds(rated) {
		rating := ratings[itemId]
		for _, neighbor := range matrix.Column(itemId) {
			scores[neighbor.ItemId] += neighbor.Value * rating
		}
	}
	topK := heap.NewTopK[int64, float64](r.topN)
	for itemId, score := range scores {
		if rated.Contains(itemId) {
			continue
		}
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return nil, errors.WithType(errors.Errorf("score of item %d overflows", itemId), ErrRecommendation)
		}
		topK.Push(itemId, score)
	}

	result = &Recommendation{
		Items: lo.Map(topK.Sorted(), func(elem heap.Elem[int64, float64], _ int) ScoredItem {
			return ScoredItem{ItemId: elem.Value, Name: snapshot.Names[elem.Value], Score: elem.Weight}
		}),
		Input: lo.Map(sortedIds(rated), func(itemId int64, _ int) RatedItem {
			return RatedItem{ItemId: itemId, Name: snapshot.Names[itemId], Rating: ratings[itemId]}
		}),
	}
	log.Logger().Debug("recommend items",
		zap.Int("n_ratings", len(ratings)),
		zap.Int("n_valid_ratings", rated.Cardinality()),
		zap.Int("n_candidates", len(scores)),
		zap.Int64s("top", lo.Map(result.Items, func(item ScoredItem, _ int) int64 {
			return item.ItemId
		})))
	return result, nil
}

func sortedIds(set mapset.Set[int64]) []int64 {
	ids := set.ToSlice()
	slices.Sort(ids)
	return ids
}
