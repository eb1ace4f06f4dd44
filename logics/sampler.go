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
	"sync"

	"github.com/juju/errors"
	"github.com/otakudb/otakudb/base"
	"github.com/otakudb/otakudb/dataset"
	"github.com/samber/lo"
)

// MaxSampleSize bounds the number of items returned by a sampler.
const MaxSampleSize = 100

// CatalogItem is an item shown to users for rating.
type CatalogItem struct {
	ItemId int64  `json:"id"`
	Name   string `json:"name"`
}

// Sampler draws catalog items that can be rated against the model.
type Sampler struct {
	cache *ModelCache
	mu    sync.Mutex
	rng   base.RandomGenerator
}

func NewSampler(cache *ModelCache, seed int64) *Sampler {
	return &Sampler{
		cache: cache,
		rng:   base.NewRandomGenerator(seed),
	}
}

// Sample returns up to n distinct catalog items that are columns of the
// correlation matrix, in random order.
func (s *Sampler) Sample(n int) ([]CatalogItem, error) {
	snapshot, err := s.cache.Load()
	if err != nil {
		return nil, errors.Trace(err)
	}
	n = min(max(n, 0), MaxSampleSize)
	candidates := lo.Filter(snapshot.Model.Items, func(item dataset.Item, _ int) bool {
		return snapshot.Model.Matrix.Contains(item.ItemId)
	})
	s.mu.Lock()
	defer s.mu.Unlock()
	indices := s.rng.Sample(0, len(candidates), n)
	if n >= len(candidates) {
		// small catalogs come back in order
		s.rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}
	return lo.Map(indices, func(i int, _ int) CatalogItem {
		return CatalogItem{ItemId: candidates[i].ItemId, Name: candidates[i].Name}
	}), nil
}
