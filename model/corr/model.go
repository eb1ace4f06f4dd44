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
	"io"
	"time"

	"github.com/juju/errors"
	"github.com/otakudb/otakudb/base/encoding"
	"github.com/otakudb/otakudb/dataset"
)

const (
	artifactMagic = "otakudb/corr"
	// Version of the artifact format.
	Version = 1
)

// Model bundles a correlation matrix with the data it was built from.
type Model struct {
	Version   int
	Matrix    *Matrix
	Items     []dataset.Item
	Ratings   []dataset.Rating
	TrainedAt time.Time
}

func NewModel(matrix *Matrix, data *dataset.Dataset) *Model {
	return &Model{
		Version:   Version,
		Matrix:    matrix,
		Items:     data.Items,
		Ratings:   data.Ratings,
		TrainedAt: time.Now().UTC(),
	}
}

type header struct {
	Version   int
	TrainedAt time.Time
}

// Marshal writes the model as a sequence of gob frames.
func (m *Model) Marshal(w io.Writer) error {
	if err := encoding.WriteString(w, artifactMagic); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, header{Version: m.Version, TrainedAt: m.TrainedAt}); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, m.Matrix.ItemIds); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, m.Matrix.Values); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, m.Items); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(encoding.WriteGob(w, m.Ratings))
}

// Unmarshal reads a model written by Marshal. Artifacts of other versions
// are rejected.
func Unmarshal(r io.Reader) (*Model, error) {
	magic, err := encoding.ReadString(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if magic != artifactMagic {
		return nil, errors.NotValidf("artifact magic %q", magic)
	}
	var h header
	if err = encoding.ReadGob(r, &h); err != nil {
		return nil, errors.Trace(err)
	}
	if h.Version != Version {
		return nil, errors.NotSupportedf("artifact version %d", h.Version)
	}
	var (
		itemIds []int64
		values  []float64
	)
	if err = encoding.ReadGob(r, &itemIds); err != nil {
		return nil, errors.Trace(err)
	}
	if err = encoding.ReadGob(r, &values); err != nil {
		return nil, errors.Trace(err)
	}
	if len(values) != len(itemIds)*len(itemIds) {
		return nil, errors.NotValidf("matrix of %d values over %d items", len(values), len(itemIds))
	}
	model := &Model{
		Version:   h.Version,
		Matrix:    NewMatrix(itemIds, values),
		TrainedAt: h.TrainedAt,
	}
	if err = encoding.ReadGob(r, &model.Items); err != nil {
		return nil, errors.Trace(err)
	}
	if err = encoding.ReadGob(r, &model.Ratings); err != nil {
		return nil, errors.Trace(err)
	}
	return model, nil
}
