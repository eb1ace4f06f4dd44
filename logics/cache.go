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
	"sync/atomic"

	"github.com/juju/errors"
	"github.com/otakudb/otakudb/dataset"
	"github.com/otakudb/otakudb/model/corr"
)

// Snapshot is a published model. It must not be modified.
type Snapshot struct {
	Model *corr.Model
	Names map[int64]string
}

// ModelCache holds the model shared by all requests. Readers see either the
// previous or the next snapshot, never a mix of both.
type ModelCache struct {
	snapshot atomic.Pointer[Snapshot]
}

func NewModelCache() *ModelCache {
	return &ModelCache{}
}

// Load returns the current snapshot or ErrModelNotReady before the first
// model is stored.
func (c *ModelCache) Load() (*Snapshot, error) {
	snapshot := c.snapshot.Load()
	if snapshot == nil {
		return nil, errors.Trace(ErrModelNotReady)
	}
	return snapshot, nil
}

// Store publishes a model.
func (c *ModelCache) Store(model *corr.Model) *Snapshot {
	snapshot := &Snapshot{
		Model: model,
		Names: dataset.Names(model.Items),
	}
	c.snapshot.Store(snapshot)
	ModelItems.Set(float64(model.Matrix.Len()))
	return snapshot
}
