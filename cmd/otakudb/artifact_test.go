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

package main

import (
	"bytes"
	"testing"

	"github.com/otakudb/otakudb/storage/blob"
	"github.com/stretchr/testify/assert"
)

func TestPrintArtifacts(t *testing.T) {
	store := blob.NewPOSIX(t.TempDir())
	for _, name := range []string{"model.bin", "backup.bin"} {
		w, err := store.Create(name)
		assert.NoError(t, err)
		_, err = w.Write([]byte("otakudb"))
		assert.NoError(t, err)
		assert.NoError(t, w.Close())
	}
	var buf bytes.Buffer
	assert.NoError(t, printArtifacts(&buf, store))
	assert.Contains(t, buf.String(), "model.bin")
	assert.Contains(t, buf.String(), "backup.bin")

	assert.NoError(t, store.Remove("backup.bin"))
	buf.Reset()
	assert.NoError(t, printArtifacts(&buf, store))
	assert.Contains(t, buf.String(), "model.bin")
	assert.NotContains(t, buf.String(), "backup.bin")
}
