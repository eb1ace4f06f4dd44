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
	"time"

	"github.com/juju/errors"
	"github.com/otakudb/otakudb/base/log"
	"github.com/otakudb/otakudb/config"
	"go.uber.org/zap"
)

// Store keeps named binary objects. Missing objects are reported as
// errors.NotFound by Open and Stat.
type Store interface {
	Open(name string) (io.ReadCloser, error)
	// Create returns a writer whose Close makes the object visible at once.
	// Readers never observe a partially written object.
	Create(name string) (Writer, error)
	// Stat returns the last modification time of an object.
	Stat(name string) (time.Time, error)
	List() ([]string, error)
	Remove(name string) error
}

// Writer commits written data on Close. Abort discards it.
type Writer interface {
	io.WriteCloser
	Abort(err error) error
}

// NewStore creates the store selected by configuration: S3 first, then GCS,
// then Azure, and the local directory otherwise.
func NewStore(cfg config.BlobConfig) (Store, error) {
	switch {
	case cfg.S3.Endpoint != "":
		log.Logger().Info("use S3 as blob store",
			zap.String("endpoint", cfg.S3.Endpoint),
			zap.String("bucket", cfg.S3.Bucket),
			zap.String("prefix", cfg.S3.Prefix))
		return NewS3(cfg.S3)
	case cfg.GCS.Bucket != "":
		log.Logger().Info("use GCS as blob store",
			zap.String("bucket", cfg.GCS.Bucket),
			zap.String("prefix", cfg.GCS.Prefix))
		return NewGCS(cfg.GCS)
	case cfg.Azure.ConnectionString != "" || cfg.Azure.AccountName != "":
		log.Logger().Info("use Azure Blob as blob store",
			zap.String("container", cfg.Azure.Container),
			zap.String("prefix", cfg.Azure.Prefix))
		return NewAzureBlob(cfg.Azure)
	default:
		log.Logger().Info("use local directory as blob store", zap.String("dir", cfg.Dir))
		return NewPOSIX(cfg.Dir), nil
	}
}

// uploadWriter streams written data to an upload running in the background.
type uploadWriter struct {
	*io.PipeWriter
	done chan error
}

func newUploadWriter(upload func(r io.Reader) error) *uploadWriter {
	pr, pw := io.Pipe()
	w := &uploadWriter{PipeWriter: pw, done: make(chan error, 1)}
	go func() {
		err := upload(pr)
		_ = pr.CloseWithError(err)
		w.done <- err
	}()
	return w
}

// Close waits for the upload to finish.
func (w *uploadWriter) Close() error {
	if err := w.PipeWriter.Close(); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(<-w.done)
}

func (w *uploadWriter) Abort(err error) error {
	if err == nil {
		err = errors.New("upload aborted")
	}
	_ = w.PipeWriter.CloseWithError(err)
	<-w.done
	return nil
}
