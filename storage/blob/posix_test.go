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

package blob

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestPOSIX(t *testing.T) {
	// create client
	client := NewPOSIX(filepath.Join(t.TempDir(), "blob"))

	// missing file
	_, err := client.Stat("model.bin")
	assert.True(t, errors.Is(err, errors.NotFound))
	_, err = client.Open("model.bin")
	assert.True(t, errors.Is(err, errors.NotFound))

	// write a file
	w, err := client.Create("model.bin")
	assert.NoError(t, err)
	_, err = w.Write([]byte("hello world"))
	assert.NoError(t, err)
	_, err = client.Stat("model.bin")
	assert.True(t, errors.Is(err, errors.NotFound), "file is visible before commit")
	assert.NoError(t, w.Close())

	// read the file
	r, err := client.Open("model.bin")
	assert.NoError(t, err)
	content, err := io.ReadAll(r)
	assert.NoError(t, err)
	assert.Equal(t, "hello world", string(content))
	assert.NoError(t, r.Close())
	modTime, err := client.Stat("model.bin")
	assert.NoError(t, err)
	assert.False(t, modTime.IsZero())

	// overwrite the file
	w, err = client.Create("model.bin")
	assert.NoError(t, err)
	_, err = w.Write([]byte("hello otaku"))
	assert.NoError(t, err)
	assert.NoError(t, w.Close())
	r, err = client.Open("model.bin")
	assert.NoError(t, err)
	content, err = io.ReadAll(r)
	assert.NoError(t, err)
	assert.Equal(t, "hello otaku", string(content))
	assert.NoError(t, r.Close())

	// list files
	names, err := client.List()
	assert.NoError(t, err)
	assert.Equal(t, []string{"model.bin"}, names)

	// remove the file
	assert.NoError(t, client.Remove("model.bin"))
	names, err = client.List()
	assert.NoError(t, err)
	assert.Empty(t, names)
	assert.True(t, errors.Is(client.Remove("model.bin"), errors.NotFound))
}

func TestPOSIXAbort(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blob")
	client := NewPOSIX(dir)

	// commit the first version
	w, err := client.Create("model.bin")
	assert.NoError(t, err)
	_, err = w.Write([]byte("version 1"))
	assert.NoError(t, err)
	assert.NoError(t, w.Close())

	// abort the second version
	w, err = client.Create("model.bin")
	assert.NoError(t, err)
	_, err = w.Write([]byte("version 2"))
	assert.NoError(t, err)
	assert.NoError(t, w.Abort(errors.New("training failed")))

	content, err := os.ReadFile(filepath.Join(dir, "model.bin"))
	assert.NoError(t, err)
	assert.Equal(t, "version 1", string(content))
	entries, err := os.ReadDir(dir)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPOSIXListMissingDir(t *testing.T) {
	client := NewPOSIX(filepath.Join(t.TempDir(), "missing"))
	names, err := client.List()
	assert.NoError(t, err)
	assert.Empty(t, names)
}
