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
	"context"
	"math"
	"runtime"
	"sort"
	"time"

	"github.com/juju/errors"
	"github.com/otakudb/otakudb/base/log"
	"github.com/otakudb/otakudb/common/parallel"
	"github.com/otakudb/otakudb/dataset"
	"go.uber.org/zap"
)

// Params are thresholds of the correlation model.
type Params struct {
	// PopularityThreshold is the number of distinct raters an item must exceed.
	PopularityThreshold int
	// MinCoRatings is the minimum number of users who rated both items.
	MinCoRatings int
	// Jobs is the number of workers.
	Jobs int
}

func DefaultParams() Params {
	return Params{
		PopularityThreshold: 300,
		MinCoRatings:        250,
		Jobs:                runtime.NumCPU(),
	}
}

// Progress observes finished rows of the matrix.
type Progress interface {
	SetTotal(total int)
	Add(n int)
}

// moments accumulates sums over users who rated both items.
type moments struct {
	n                     int
	sx, sy, sxx, syy, sxy float64
}

func (m *moments) add(x, y float64) {
	m.n++
	m.sx += x
	m.sy += y
	m.sxx += x * x
	m.syy += y * y
	m.sxy += x * y
}

// pearson returns the correlation coefficient or NaN if it is undefined.
func (m *moments) pearson(minCount int) float64 {
	if m.n < minCount || m.n < 2 {
		return math.NaN()
	}
	n := float64(m.n)
	vx := n*m.sxx - m.sx*m.sx
	vy := n*m.syy - m.sy*m.sy
	// constant columns
	if vx <= 1e-12*n*m.sxx || vy <= 1e-12*n*m.syy {
		return math.NaN()
	}
	r := (n*m.sxy - m.sx*m.sy) / math.Sqrt(vx*vy)
	return math.Max(-1, math.Min(1, r))
}

// Correlate computes Pearson correlations between all pairs of pivot columns
// over users who rated both items. Each row owns its accumulators and writes
// only the cells (i, j) and (j, i) for j >= i.
func Correlate(ctx context.Context, pivot *Pivot, params Params, progress Progress) (*Matrix, error) {
	n := len(pivot.ItemIds)
	values := make([]float64, n*n)
	for i := range values {
		values[i] = math.NaN()
	}
	jobs := params.Jobs
	if jobs < 1 {
		jobs = 1
	}
	if progress != nil {
		progress.SetTotal(n)
	}
	err := parallel.Parallel(ctx, n, jobs, func(_, i int) error {
		acc := make([]moments, n-i)
		for _, rater := range pivot.Columns[i] {
			x := rater.Value
			row := pivot.Rows[rater.Index]
			// skip items before i
			start := sort.Search(len(row), func(k int) bool {
				return int(row[k].Index) >= i
			})
			for _, entry := range row[start:] {
				acc[int(entry.Index)-i].add(x, entry.Value)
			}
		}
		for k := range acc {
			j := i + k
			r := acc[k].pearson(params.MinCoRatings)
			if math.IsNaN(r) {
				continue
			}
			if j == i {
				r = 1
			}
			values[i*n+j] = r
			values[j*n+i] = r
		}
		if progress != nil {
			progress.Add(1)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return NewMatrix(pivot.ItemIds, values), nil
}

// Fit builds the correlation matrix of popular items from ratings.
func Fit(ctx context.Context, ratings []dataset.Rating, params Params, progress Progress) (*Matrix, error) {
	start := time.Now()
	popular := PopularItems(ratings, params.PopularityThreshold)
	pivot := BuildPivot(ratings, popular)
	log.Logger().Info("build rating pivot",
		zap.Int("n_popular_items", len(pivot.ItemIds)),
		zap.Int("n_users", len(pivot.UserIds)),
		zap.Int("n_cells", pivot.Count()),
		zap.Int("popularity_threshold", params.PopularityThreshold))
	matrix, err := Correlate(ctx, pivot, params, progress)
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("compute item correlations",
		zap.Int("n_items", matrix.Len()),
		zap.Int("n_pairs", matrix.Pairs()),
		zap.Int("min_co_ratings", params.MinCoRatings),
		zap.Duration("duration", time.Since(start)))
	return matrix, nil
}
