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

package dataset

import (
	"html"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/otakudb/otakudb/base"
	"github.com/otakudb/otakudb/base/log"
	"go.uber.org/zap"
)

// ErrDataLoad marks missing or corrupt source files.
const ErrDataLoad = errors.ConstError("data load error")

// Unknown fills missing genre and type.
const Unknown = "Unknown"

const (
	catalogFields = 7
	ratingFields  = 3
)

// Item is an anime in the catalog.
type Item struct {
	ItemId   int64
	Name     string
	Genre    string
	Type     string
	Episodes float64
	Score    float64
	Members  int64
}

// Rating is a rating event of a user.
type Rating struct {
	UserId int64
	ItemId int64
	Value  float32
}

// Dataset is a cleaned catalog with ratings of catalog items only.
type Dataset struct {
	Items   []Item
	Ratings []Rating
}

// ItemIndex maps item ids to positions in Items.
func (d *Dataset) ItemIndex() map[int64]int {
	index := make(map[int64]int, len(d.Items))
	for i, item := range d.Items {
		index[item.ItemId] = i
	}
	return index
}

// Names maps item ids to display names.
func (d *Dataset) Names() map[int64]string {
	return Names(d.Items)
}

func Names(items []Item) map[int64]string {
	names := make(map[int64]string, len(items))
	for _, item := range items {
		names[item.ItemId] = item.Name
	}
	return names
}

func dataLoadError(err error) error {
	return errors.WithType(err, ErrDataLoad)
}

func parseFloat(s string) (float64, bool) {
	value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

func parseInt(s string) (int64, bool) {
	value, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err == nil {
		return value, true
	}
	// ids exported as floats, e.g. "20.0"
	f, ok := parseFloat(s)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

type catalogRow struct {
	item     Item
	episodes bool
	score    bool
}

// LoadCatalog reads the item catalog. The first record is a header; columns
// are id, name, genre, type, episodes, score and members.
func LoadCatalog(r io.Reader) ([]Item, error) {
	var (
		rows     []catalogRow
		scoreSum float64
		scoreNum int
	)
	err := base.ReadLines(r, ',', func(i int, fields []string) error {
		if i == 0 {
			return nil
		}
		if len(fields) != catalogFields {
			return errors.Errorf("catalog record %d has %d fields, expected %d", i, len(fields), catalogFields)
		}
		var row catalogRow
		var ok bool
		if row.item.ItemId, ok = parseInt(fields[0]); !ok {
			return errors.Errorf("catalog record %d has invalid id %q", i, fields[0])
		}
		row.item.Name = html.UnescapeString(fields[1])
		row.item.Genre = strings.TrimSpace(fields[2])
		if row.item.Genre == "" {
			row.item.Genre = Unknown
		}
		row.item.Type = strings.TrimSpace(fields[3])
		if row.item.Type == "" {
			row.item.Type = Unknown
		}
		row.item.Episodes, row.episodes = parseFloat(fields[4])
		if row.item.Score, row.score = parseFloat(fields[5]); row.score {
			scoreSum += row.item.Score
			scoreNum++
		}
		row.item.Members, _ = parseInt(fields[6])
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, dataLoadError(errors.Trace(err))
	}
	// impute missing scores with the mean of all loaded rows
	var meanScore float64
	if scoreNum > 0 {
		meanScore = scoreSum / float64(scoreNum)
	}
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		if !row.score {
			if scoreNum == 0 {
				continue
			}
			row.item.Score = meanScore
		}
		if !row.episodes {
			continue
		}
		items = append(items, row.item)
	}
	log.Logger().Debug("load catalog",
		zap.Int("n_rows", len(rows)),
		zap.Int("n_items", len(items)),
		zap.Float64("mean_score", meanScore))
	return items, nil
}

// LoadRatings reads the rating log. The first record is a header; columns are
// user_id, item_id and rating. Unrated events and incomplete rows are dropped.
func LoadRatings(r io.Reader, notRated float32) ([]Rating, error) {
	var (
		ratings []Rating
		numRows int
	)
	err := base.ReadLines(r, ',', func(i int, fields []string) error {
		if i == 0 {
			return nil
		}
		if len(fields) != ratingFields {
			return errors.Errorf("rating record %d has %d fields, expected %d", i, len(fields), ratingFields)
		}
		numRows++
		userId, ok := parseInt(fields[0])
		if !ok {
			return nil
		}
		itemId, ok := parseInt(fields[1])
		if !ok {
			return nil
		}
		value, ok := parseFloat(fields[2])
		if !ok || float32(value) == notRated {
			return nil
		}
		ratings = append(ratings, Rating{UserId: userId, ItemId: itemId, Value: float32(value)})
		return nil
	})
	if err != nil {
		return nil, dataLoadError(errors.Trace(err))
	}
	log.Logger().Debug("load ratings",
		zap.Int("n_rows", numRows),
		zap.Int("n_ratings", len(ratings)))
	return ratings, nil
}

// Join keeps ratings of items in the catalog.
func Join(items []Item, ratings []Rating) []Rating {
	exists := make(map[int64]struct{}, len(items))
	for _, item := range items {
		exists[item.ItemId] = struct{}{}
	}
	joined := make([]Rating, 0, len(ratings))
	for _, rating := range ratings {
		if _, ok := exists[rating.ItemId]; ok {
			joined = append(joined, rating)
		}
	}
	return joined
}

// LoadFiles loads and cleans the catalog and the rating log.
func LoadFiles(catalogPath, ratingsPath string, notRated float32) (*Dataset, error) {
	items, err := loadFile(catalogPath, LoadCatalog)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to load catalog %s", catalogPath)
	}
	ratings, err := loadFile(ratingsPath, func(r io.Reader) ([]Rating, error) {
		return LoadRatings(r, notRated)
	})
	if err != nil {
		return nil, errors.Annotatef(err, "failed to load ratings %s", ratingsPath)
	}
	joined := Join(items, ratings)
	log.Logger().Info("load dataset",
		zap.String("catalog", catalogPath),
		zap.String("ratings", ratingsPath),
		zap.Int("n_items", len(items)),
		zap.Int("n_ratings", len(ratings)),
		zap.Int("n_joined_ratings", len(joined)))
	return &Dataset{Items: items, Ratings: joined}, nil
}

func loadFile[T any](path string, load func(io.Reader) ([]T, error)) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, dataLoadError(errors.Trace(err))
	}
	defer file.Close()
	return load(file)
}
