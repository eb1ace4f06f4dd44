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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/juju/errors"
	"github.com/otakudb/otakudb/base/progress"
	"github.com/otakudb/otakudb/config"
	"github.com/otakudb/otakudb/dataset"
	"github.com/otakudb/otakudb/storage/blob"
	"github.com/otakudb/otakudb/storage/meta"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

const trainCatalogCSV = `anime_id,name,genre,type,episodes,rating,members
1,Cowboy Bebop,"Action, Sci-Fi",TV,26,8.82,486824
2,Trigun,"Action, Sci-Fi",TV,26,8.32,283069
3,Akira,"Action, Sci-Fi",Movie,1,8.27,328312
4,Nana,"Drama, Romance",TV,47,8.55,181471
5,Monster,"Drama, Mystery",TV,74,8.72,247562
`

// trainRatingsCSV rates items 1 to 3 by forty users and item 4 by five.
func trainRatingsCSV() string {
	var builder strings.Builder
	builder.WriteString("user_id,anime_id,rating\n")
	for u := 0; u < 40; u++ {
		x := u%5 + 1
		fmt.Fprintf(&builder, "%d,1,%d\n", u, x)
		fmt.Fprintf(&builder, "%d,2,%d\n", u, 2*x)
		fmt.Fprintf(&builder, "%d,3,%d\n", u, 10-x+u%2)
		if u < 5 {
			fmt.Fprintf(&builder, "%d,4,%d\n", u, x)
		}
	}
	builder.WriteString("0,5,-1\n")
	return builder.String()
}

type TrainerTestSuite struct {
	suite.Suite
	config  *config.Config
	store   blob.Store
	meta    meta.Database
	cache   *ModelCache
	trainer *Trainer
}

func (suite *TrainerTestSuite) SetupTest() {
	dir := suite.T().TempDir()
	suite.config = config.GetDefaultConfig()
	suite.config.Dataset.CatalogPath = filepath.Join(dir, "anime.csv")
	suite.config.Dataset.RatingsPath = filepath.Join(dir, "rating.csv")
	suite.config.Model.PopularityThreshold = 10
	suite.config.Model.MinCoRatings = 20
	suite.config.Model.Jobs = 2
	suite.config.Blob.Dir = filepath.Join(dir, "blob")
	suite.NoError(os.WriteFile(suite.config.Dataset.CatalogPath, []byte(trainCatalogCSV), 0644))
	suite.NoError(os.WriteFile(suite.config.Dataset.RatingsPath, []byte(trainRatingsCSV()), 0644))

	var err error
	suite.store, err = blob.NewStore(suite.config.Blob)
	suite.NoError(err)
	suite.meta, err = meta.Open(fmt.Sprintf("sqlite://%s/meta.sqlite3", dir))
	suite.NoError(err)
	suite.NoError(suite.meta.Init())
	suite.cache = NewModelCache()
	suite.trainer = NewTrainer(suite.config, suite.store, suite.meta, suite.cache)
}

func (suite *TrainerTestSuite) TearDownTest() {
	suite.NoError(suite.meta.Close())
}

func (suite *TrainerTestSuite) TestTrain() {
	result, err := suite.trainer.Train(context.Background(), false)
	suite.NoError(err)
	suite.Equal(TrainResult{Source: SourceTrained, Items: 3}, result)
	snapshot, err := suite.cache.Load()
	suite.NoError(err)
	suite.Equal([]int64{1, 2, 3}, snapshot.Model.Matrix.ItemIds)
	r, ok := snapshot.Model.Matrix.Get(1, 2)
	suite.True(ok)
	suite.InDelta(1.0, r, 1e-9)
	suite.Len(snapshot.Model.Items, 5)
	suite.Equal("Akira", snapshot.Names[3])

	// artifact exists
	_, err = suite.store.Stat(suite.config.Model.ArtifactName)
	suite.NoError(err)

	// progress
	tasks := suite.trainer.Tracer().List()
	suite.Equal([]string{"train", "train/correlate"}, lo.Map(tasks, func(p progress.Progress, _ int) string {
		return p.Name
	}))
	for _, task := range tasks {
		suite.Equal(progress.StatusComplete, task.Status)
	}
	suite.Equal(3, tasks[1].Total)
}

func (suite *TrainerTestSuite) TestTrainTwice() {
	result, err := suite.trainer.Train(context.Background(), false)
	suite.NoError(err)
	suite.Equal(SourceTrained, result.Source)
	first, err := suite.cache.Load()
	suite.NoError(err)

	// the dataset is not read again
	suite.NoError(os.Remove(suite.config.Dataset.RatingsPath))
	result, err = suite.trainer.Train(context.Background(), false)
	suite.NoError(err)
	suite.Equal(TrainResult{Source: SourceArtifact, Items: 3}, result)
	second, err := suite.cache.Load()
	suite.NoError(err)
	suite.NotSame(first, second)
	suite.True(first.Model.Matrix.Equal(second.Model.Matrix, 0))
	suite.Equal(first.Model.Ratings, second.Model.Ratings)
	suite.True(first.Model.TrainedAt.Equal(second.Model.TrainedAt))
}

func (suite *TrainerTestSuite) TestTrainForce() {
	_, err := suite.trainer.Train(context.Background(), false)
	suite.NoError(err)
	before, err := suite.cache.Load()
	suite.NoError(err)

	result, err := suite.trainer.Train(context.Background(), true)
	suite.NoError(err)
	suite.Equal(SourceTrained, result.Source)

	// failed runs leave the cache untouched
	after, err := suite.cache.Load()
	suite.NoError(err)
	suite.NoError(os.Remove(suite.config.Dataset.CatalogPath))
	_, err = suite.trainer.Train(context.Background(), true)
	suite.ErrorIs(err, ErrTraining)
	suite.ErrorIs(err, dataset.ErrDataLoad)
	current, err := suite.cache.Load()
	suite.NoError(err)
	suite.Same(after, current)
	suite.NotSame(before, current)
	suite.Equal(progress.StatusFailed, suite.trainer.Tracer().List()[0].Status)
}

func (suite *TrainerTestSuite) TestTrainMissingDataset() {
	suite.NoError(os.Remove(suite.config.Dataset.RatingsPath))
	_, err := suite.trainer.Train(context.Background(), false)
	suite.ErrorIs(err, ErrTraining)
	_, err = suite.cache.Load()
	suite.ErrorIs(err, ErrModelNotReady)
	_, err = suite.store.Stat(suite.config.Model.ArtifactName)
	suite.True(errors.Is(err, errors.NotFound))
}

func (suite *TrainerTestSuite) TestTrainCorruptArtifact() {
	w, err := suite.store.Create(suite.config.Model.ArtifactName)
	suite.NoError(err)
	_, err = w.Write([]byte("not a model"))
	suite.NoError(err)
	suite.NoError(w.Close())

	_, err = suite.trainer.Train(context.Background(), false)
	suite.ErrorIs(err, ErrTraining)
	result, err := suite.trainer.Train(context.Background(), true)
	suite.NoError(err)
	suite.Equal(SourceTrained, result.Source)
}

func (suite *TrainerTestSuite) TestWarmup() {
	suite.NoError(suite.trainer.Warmup())
	_, err := suite.cache.Load()
	suite.ErrorIs(err, ErrModelNotReady)

	_, err = suite.trainer.Train(context.Background(), false)
	suite.NoError(err)
	cache := NewModelCache()
	trainer := NewTrainer(suite.config, suite.store, suite.meta, cache)
	suite.NoError(trainer.Warmup())
	snapshot, err := cache.Load()
	suite.NoError(err)
	suite.Equal(3, snapshot.Model.Matrix.Len())
}

func (suite *TrainerTestSuite) TestMetadata() {
	_, err := suite.trainer.Metadata()
	suite.True(errors.Is(err, errors.NotFound))

	_, err = suite.trainer.Train(context.Background(), false)
	suite.NoError(err)
	info, err := suite.trainer.Metadata()
	suite.NoError(err)
	suite.Equal(3, info.Items)
	suite.Equal(40, info.Users)
	suite.Equal(125, info.Ratings)
	suite.Equal(3, info.Pairs)
	suite.Equal(SourceTrained, info.Source)
	suite.False(info.TrainedAt.IsZero())
	modTime, err := suite.store.Stat(suite.config.Model.ArtifactName)
	suite.NoError(err)
	if suite.NotNil(info.ArtifactModified) {
		suite.True(modTime.Equal(*info.ArtifactModified))
	}

	// metadata outlives a removed artifact
	suite.NoError(suite.store.Remove(suite.config.Model.ArtifactName))
	info, err = suite.trainer.Metadata()
	suite.NoError(err)
	suite.Nil(info.ArtifactModified)
}

func TestTrainer(t *testing.T) {
	suite.Run(t, new(TrainerTestSuite))
}
