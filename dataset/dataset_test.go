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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

const catalogCSV = `anime_id,name,genre,type,episodes,rating,members
32281,Kimi no Na wa.,"Drama, Romance, School, Supernatural",Movie,1,9.37,200630
5114,Fullmetal Alchemist: Brotherhood,"Action, Adventure, Drama",TV,64,9.26,793665
28977,Gintama&#039;,"Action, Comedy, Historical",TV,51,,114262
9253,Steins;Gate,,,24,9.17,673572
30484,One Piece Film: Gold,"Action, Adventure",Movie,Unknown,8.2,40000
11111,Hataraku Maou-sama!,Comedy,TV,13,unknown,12000
`

const ratingsCSV = `user_id,anime_id,rating
1,32281,10
1,5114,-1
1,28977,8
2,5114,9
2,30484,7
3,,7
3,9253,
4,99999,6
x,9253,5
`

func TestLoadCatalog(t *testing.T) {
	items, err := LoadCatalog(strings.NewReader(catalogCSV))
	assert.NoError(t, err)
	// one piece film has unknown episodes
	assert.Equal(t, []int64{32281, 5114, 28977, 9253, 11111}, lo.Map(items, func(item Item, _ int) int64 {
		return item.ItemId
	}))
	// html entities are decoded
	assert.Equal(t, "Gintama'", items[2].Name)
	// missing genre and type
	assert.Equal(t, Unknown, items[3].Genre)
	assert.Equal(t, Unknown, items[3].Type)
	// missing scores are imputed by the mean of all rows
	mean := (9.37 + 9.26 + 9.17 + 8.2) / 4
	assert.InDelta(t, mean, items[2].Score, 1e-9)
	assert.InDelta(t, mean, items[4].Score, 1e-9)
	assert.Equal(t, Item{
		ItemId:   5114,
		Name:     "Fullmetal Alchemist: Brotherhood",
		Genre:    "Action, Adventure, Drama",
		Type:     "TV",
		Episodes: 64,
		Score:    9.26,
		Members:  793665,
	}, items[1])
	// every retained item is complete
	for _, item := range items {
		assert.NotEmpty(t, item.Genre)
		assert.NotEmpty(t, item.Type)
		assert.False(t, item.Episodes < 0)
	}
}

func TestLoadCatalogWithoutScores(t *testing.T) {
	items, err := LoadCatalog(strings.NewReader("anime_id,name,genre,type,episodes,rating,members\n1,A,Comedy,TV,12,,100\n"))
	assert.NoError(t, err)
	assert.Empty(t, items)
}

func TestLoadCatalogInnerQuote(t *testing.T) {
	items, err := LoadCatalog(strings.NewReader("anime_id,name,genre,type,episodes,rating,members\n1,Gun 5\" Edition,Action,OVA,2,7.1,900\n"))
	assert.NoError(t, err)
	if assert.Len(t, items, 1) {
		assert.Equal(t, `Gun 5" Edition`, items[0].Name)
	}
}

func TestLoadCatalogCorrupt(t *testing.T) {
	_, err := LoadCatalog(strings.NewReader("anime_id,name,genre,type,episodes,rating,members\n1,A,Comedy,TV,12\n"))
	assert.True(t, errors.Is(err, ErrDataLoad))
	_, err = LoadCatalog(strings.NewReader("anime_id,name,genre,type,episodes,rating,members\nabc,A,Comedy,TV,12,8.0,100\n"))
	assert.True(t, errors.Is(err, ErrDataLoad))
}

func TestLoadRatings(t *testing.T) {
	ratings, err := LoadRatings(strings.NewReader(ratingsCSV), -1)
	assert.NoError(t, err)
	assert.Equal(t, []Rating{
		{UserId: 1, ItemId: 32281, Value: 10},
		{UserId: 1, ItemId: 28977, Value: 8},
		{UserId: 2, ItemId: 5114, Value: 9},
		{UserId: 2, ItemId: 30484, Value: 7},
		{UserId: 4, ItemId: 99999, Value: 6},
	}, ratings)

	_, err = LoadRatings(strings.NewReader("user_id,anime_id,rating\n1,2\n"), -1)
	assert.True(t, errors.Is(err, ErrDataLoad))
}

func TestJoin(t *testing.T) {
	items, err := LoadCatalog(strings.NewReader(catalogCSV))
	assert.NoError(t, err)
	ratings, err := LoadRatings(strings.NewReader(ratingsCSV), -1)
	assert.NoError(t, err)
	joined := Join(items, ratings)
	assert.Equal(t, []Rating{
		{UserId: 1, ItemId: 32281, Value: 10},
		{UserId: 1, ItemId: 28977, Value: 8},
		{UserId: 2, ItemId: 5114, Value: 9},
	}, joined)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "anime.csv")
	ratingsPath := filepath.Join(dir, "rating.csv")
	assert.NoError(t, os.WriteFile(catalogPath, []byte(catalogCSV), os.ModePerm))
	assert.NoError(t, os.WriteFile(ratingsPath, []byte(ratingsCSV), os.ModePerm))

	dataset, err := LoadFiles(catalogPath, ratingsPath, -1)
	assert.NoError(t, err)
	assert.Len(t, dataset.Items, 5)
	assert.Len(t, dataset.Ratings, 3)
	assert.Equal(t, 1, dataset.ItemIndex()[5114])
	assert.Equal(t, "Steins;Gate", dataset.Names()[9253])

	// missing file
	_, err = LoadFiles(filepath.Join(dir, "missing.csv"), ratingsPath, -1)
	assert.True(t, errors.Is(err, ErrDataLoad))
	_, err = LoadFiles(catalogPath, filepath.Join(dir, "missing.csv"), -1)
	assert.True(t, errors.Is(err, ErrDataLoad))
}
