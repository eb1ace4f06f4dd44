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
	"bufio"
	"context"
	"encoding/json"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/otakudb/otakudb/base/log"
	"github.com/otakudb/otakudb/base/progress"
	"github.com/otakudb/otakudb/config"
	"github.com/otakudb/otakudb/dataset"
	"github.com/otakudb/otakudb/model/corr"
	"github.com/otakudb/otakudb/storage/blob"
	"github.com/otakudb/otakudb/storage/meta"
	"go.uber.org/zap"
)

const (
	SourceArtifact = "artifact"
	SourceTrained  = "trained"
)

type TrainResult struct {
	Source string
	Items  int
}

// ModelMeta describes the model in the cache.
type ModelMeta struct {
	Items     int       `json:"items"`
	Users     int       `json:"users"`
	Ratings   int       `json:"ratings"`
	Pairs     int       `json:"pairs"`
	Source    string    `json:"source"`
	TrainedAt time.Time `json:"trained_at"`
	LoadedAt  time.Time `json:"loaded_at"`
	Duration  float64   `json:"duration_seconds"`
	// ArtifactModified is the modification time of the stored artifact.
	ArtifactModified *time.Time `json:"artifact_modified,omitempty"`
}

// Trainer builds models and publishes them to the cache. Runs are serialized.
type Trainer struct {
	mu     sync.Mutex
	config *config.Config
	store  blob.Store
	meta   meta.Database
	cache  *ModelCache
	tracer *progress.Tracer
}

func NewTrainer(cfg *config.Config, store blob.Store, metaStore meta.Database, cache *ModelCache) *Trainer {
	return &Trainer{
		config: cfg,
		store:  store,
		meta:   metaStore,
		cache:  cache,
		tracer: progress.NewTracer("trainer"),
	}
}

func (t *Trainer) Tracer() *progress.Tracer {
	return t.tracer
}

func (t *Trainer) params() corr.Params {
	return corr.Params{
		PopularityThreshold: t.config.Model.PopularityThreshold,
		MinCoRatings:        t.config.Model.MinCoRatings,
		Jobs:                t.config.Model.Jobs,
	}
}

// Train loads the stored artifact unless force is set or no artifact exists.
// Otherwise it builds a model from the dataset and stores it. The cache is
// only updated if every step succeeds.
func (t *Trainer) Train(ctx context.Context, force bool) (TrainResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	start := time.Now()
	ctx, span := t.tracer.Start(ctx, "train", 2)
	result, err := t.train(ctx, force, span)
	if err != nil {
		span.Fail(err)
		TrainTotal.WithLabelValues("failed").Inc()
		log.Logger().Error("failed to train model", zap.Bool("force", force), zap.Error(err))
		return TrainResult{}, errors.WithType(err, ErrTraining)
	}
	span.End()
	TrainTotal.WithLabelValues(result.Source).Inc()
	TrainSeconds.Set(time.Since(start).Seconds())
	log.Logger().Info("model ready",
		zap.String("source", result.Source),
		zap.Int("n_items", result.Items),
		zap.Duration("duration", time.Since(start)))
	return result, nil
}

func (t *Trainer) train(ctx context.Context, force bool, span *progress.Span) (TrainResult, error) {
	start := time.Now()
	if !force {
		model, err := t.loadArtifact()
		if err == nil {
			span.Add(2)
			return t.publish(model, SourceArtifact, start)
		} else if !errors.Is(err, errors.NotFound) {
			return TrainResult{}, errors.Trace(err)
		}
		log.Logger().Info("no model artifact found", zap.String("name", t.config.Model.ArtifactName))
	}

	// load dataset
	data, err := dataset.LoadFiles(t.config.Dataset.CatalogPath, t.config.Dataset.RatingsPath, t.config.Dataset.NotRated)
	if err != nil {
		return TrainResult{}, errors.Trace(err)
	}
	span.Add(1)

	// correlate items
	fitCtx, fitSpan := progress.Start(ctx, "correlate", 0)
	matrix, err := corr.Fit(fitCtx, data.Ratings, t.params(), fitSpan)
	if err != nil {
		fitSpan.Fail(err)
		return TrainResult{}, errors.Trace(err)
	}
	fitSpan.End()
	model := corr.NewModel(matrix, data)

	// save artifact
	if err = t.saveArtifact(model); err != nil {
		return TrainResult{}, errors.Trace(err)
	}
	span.Add(1)
	return t.publish(model, SourceTrained, start)
}

// Warmup loads the stored artifact if there is one.
func (t *Trainer) Warmup() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	model, err := t.loadArtifact()
	if errors.Is(err, errors.NotFound) {
		log.Logger().Info("start without model", zap.String("name", t.config.Model.ArtifactName))
		return nil
	} else if err != nil {
		return errors.WithType(errors.Trace(err), ErrTraining)
	}
	if _, err = t.publish(model, SourceArtifact, time.Now()); err != nil {
		return errors.WithType(errors.Trace(err), ErrTraining)
	}
	log.Logger().Info("load model artifact",
		zap.String("name", t.config.Model.ArtifactName),
		zap.Time("trained_at", model.TrainedAt),
		zap.Int("n_items", model.Matrix.Len()))
	return nil
}

func (t *Trainer) loadArtifact() (*corr.Model, error) {
	r, err := t.store.Open(t.config.Model.ArtifactName)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer r.Close()
	model, err := corr.Unmarshal(bufio.NewReader(r))
	if err != nil {
		return nil, errors.Annotatef(err, "read artifact %s", t.config.Model.ArtifactName)
	}
	return model, nil
}

func (t *Trainer) saveArtifact(model *corr.Model) error {
	w, err := t.store.Create(t.config.Model.ArtifactName)
	if err != nil {
		return errors.Trace(err)
	}
	buf := bufio.NewWriter(w)
	if err = model.Marshal(buf); err == nil {
		err = buf.Flush()
	}
	if err != nil {
		if abortErr := w.Abort(err); abortErr != nil {
			log.Logger().Warn("failed to abort artifact", zap.Error(abortErr))
		}
		return errors.Trace(err)
	}
	return errors.Trace(w.Close())
}

// publish records metadata and swaps the model into the cache.
func (t *Trainer) publish(model *corr.Model, source string, start time.Time) (TrainResult, error) {
	info := ModelMeta{
		Items:     model.Matrix.Len(),
		Users:     countUsers(model.Ratings),
		Ratings:   len(model.Ratings),
		Pairs:     model.Matrix.Pairs(),
		Source:    source,
		TrainedAt: model.TrainedAt,
		LoadedAt:  time.Now().UTC(),
		Duration:  time.Since(start).Seconds(),
	}
	if t.meta != nil {
		buf, err := json.Marshal(info)
		if err != nil {
			return TrainResult{}, errors.Trace(err)
		}
		if err = t.meta.Put(meta.ModelKey, string(buf)); err != nil {
			return TrainResult{}, errors.Trace(err)
		}
	}
	t.cache.Store(model)
	return TrainResult{Source: source, Items: model.Matrix.Len()}, nil
}

// Metadata returns the description of the latest published model.
func (t *Trainer) Metadata() (*ModelMeta, error) {
	if t.meta == nil {
		return nil, errors.NotFoundf("model metadata")
	}
	value, err := t.meta.Get(meta.ModelKey)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if value == nil {
		return nil, errors.NotFoundf("model metadata")
	}
	var m ModelMeta
	if err = json.Unmarshal([]byte(*value), &m); err != nil {
		return nil, errors.Trace(err)
	}
	modTime, err := t.store.Stat(t.config.Model.ArtifactName)
	if err == nil {
		m.ArtifactModified = &modTime
	} else if !errors.Is(err, errors.NotFound) {
		return nil, errors.Trace(err)
	}
	return &m, nil
}

func countUsers(ratings []dataset.Rating) int {
	users := mapset.NewThreadUnsafeSet[int64]()
	for _, rating := range ratings {
		users.Add(rating.UserId)
	}
	return users.Cardinality()
}
