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

package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/juju/errors"
	"github.com/otakudb/otakudb/base/log"
	"github.com/otakudb/otakudb/config"
	"github.com/otakudb/otakudb/logics"
	"github.com/otakudb/otakudb/storage/blob"
	"github.com/otakudb/otakudb/storage/data"
	"github.com/otakudb/otakudb/storage/meta"
	"go.uber.org/zap"
)

// Server owns the stores and the HTTP server of a node.
type Server struct {
	RestServer
	DataClient data.Database
	MetaClient meta.Database
	BlobStore  blob.Store
	httpServer *http.Server
}

// NewServer opens stores and creates components from configuration.
func NewServer(cfg *config.Config) (*Server, error) {
	s := &Server{RestServer: RestServer{Config: cfg}}
	var err error
	// open stores
	if s.BlobStore, err = blob.NewStore(cfg.Blob); err != nil {
		return nil, errors.Annotate(err, "open blob store")
	}
	if s.MetaClient, err = meta.Open(cfg.Database.MetaStore); err != nil {
		return nil, errors.Annotate(err, "open meta store")
	}
	if err = s.MetaClient.Init(); err != nil {
		return nil, errors.Annotate(err, "init meta store")
	}
	if cfg.Database.DataStore == "" {
		log.Logger().Warn("no data store configured, registration and login are disabled")
		s.DataClient = data.NoDatabase{}
	} else {
		if s.DataClient, err = data.Open(cfg.Database.DataStore, cfg.Database.TablePrefix); err != nil {
			return nil, errors.Annotate(err, "open data store")
		}
		if err = s.DataClient.Init(); err != nil {
			return nil, errors.Annotate(err, "init data store")
		}
		log.Logger().Info("connect data store",
			zap.String("data_store", log.RedactDBURL(cfg.Database.DataStore)),
			zap.String("table_prefix", cfg.Database.TablePrefix))
	}
	// create components
	s.Cache = logics.NewModelCache()
	s.Trainer = logics.NewTrainer(cfg, s.BlobStore, s.MetaClient, s.Cache)
	s.Recommender = logics.NewRecommender(s.Cache, cfg.Recommend.TopN)
	s.Sampler = logics.NewSampler(s.Cache, cfg.Recommend.Seed)
	s.Credentials = logics.NewCredentials(s.DataClient, cfg.Server.BcryptCost)
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.Container(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s, nil
}

// Handler returns the handler of all HTTP routes.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Serve loads the stored model and serves requests until Shutdown.
func (s *Server) Serve() error {
	if err := s.Trainer.Warmup(); err != nil {
		log.Logger().Warn("failed to load stored model", zap.Error(err))
	}
	log.Logger().Info("start http server",
		zap.String("url", fmt.Sprintf("http://%s", s.httpServer.Addr)))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Trace(err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for running ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return errors.Trace(s.httpServer.Shutdown(ctx))
}

// Close releases stores.
func (s *Server) Close() error {
	var errs []error
	if s.DataClient != nil {
		errs = append(errs, s.DataClient.Close())
	}
	if s.MetaClient != nil {
		errs = append(errs, s.MetaClient.Close())
	}
	for _, err := range errs {
		if err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}
