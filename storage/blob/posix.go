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
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/otakudb/otakudb/base/log"
	"go.uber.org/zap"
)

const tempSuffix = ".tmp-"

type POSIX struct {
	dir string
}

func NewPOSIX(dir string) *POSIX {
	return &POSIX{dir: dir}
}

// Open a file for reading.
func (p *POSIX) Open(name string) (io.ReadCloser, error) {
	file, err := os.Open(filepath.Join(p.dir, name))
	if os.IsNotExist(err) {
		return nil, errors.NotFoundf("blob %s", name)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	return file, nil
}

// Create a temporary file next to the target. It is renamed to the target on Close.
func (p *POSIX) Create(name string) (Writer, error) {
	fullPath := filepath.Join(p.dir, name)
	if err := os.MkdirAll(filepath.Dir(fullPath), os.ModePerm); err != nil {
		return nil, errors.Trace(err)
	}
	file, err := os.CreateTemp(filepath.Dir(fullPath), filepath.Base(fullPath)+tempSuffix+"*")
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &posixWriter{File: file, target: fullPath}, nil
}

type posixWriter struct {
	*os.File
	target string
}

func (w *posixWriter) Close() error {
	if err := w.File.Sync(); err != nil {
		_ = w.Abort(err)
		return errors.Trace(err)
	}
	if err := w.File.Close(); err != nil {
		_ = os.Remove(w.File.Name())
		return errors.Trace(err)
	}
	if err := os.Rename(w.File.Name(), w.target); err != nil {
		_ = os.Remove(w.File.Name())
		return errors.Trace(err)
	}
	return nil
}

func (w *posixWriter) Abort(err error) error {
	log.Logger().Warn("discard partially written file", zap.String("file", w.target), zap.Error(err))
	_ = w.File.Close()
	return errors.Trace(os.Remove(w.File.Name()))
}

func (p *POSIX) Stat(name string) (time.Time, error) {
	info, err := os.Stat(filepath.Join(p.dir, name))
	if os.IsNotExist(err) {
		return time.Time{}, errors.NotFoundf("blob %s", name)
	} else if err != nil {
		return time.Time{}, errors.Trace(err)
	}
	return info.ModTime(), nil
}

// List files in the directory. Temporary files are skipped.
func (p *POSIX) List() ([]string, error) {
	var names []string
	err := filepath.WalkDir(p.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.Contains(d.Name(), tempSuffix) {
			return nil
		}
		name, err := filepath.Rel(p.dir, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(name))
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	return names, nil
}

func (p *POSIX) Remove(name string) error {
	err := os.Remove(filepath.Join(p.dir, name))
	if os.IsNotExist(err) {
		return errors.NotFoundf("blob %s", name)
	}
	return errors.Trace(err)
}
