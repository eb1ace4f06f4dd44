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
	"context"
	"fmt"
	"time"

	"github.com/otakudb/otakudb/base/log"
	"github.com/otakudb/otakudb/base/progress"
	"github.com/otakudb/otakudb/logics"
	"github.com/otakudb/otakudb/server"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var trainCommand = &cobra.Command{
	Use:   "train",
	Short: "Train the correlation model and store the artifact.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := setup(cmd)
		force, _ := cmd.Flags().GetBool("force")
		s, err := server.NewServer(cfg)
		if err != nil {
			log.Logger().Fatal("failed to create server", zap.Error(err))
		}
		defer s.Close()

		done := make(chan struct{})
		go showProgress(s.Trainer.Tracer(), done)
		result, err := s.Trainer.Train(context.Background(), force)
		close(done)
		if err != nil {
			log.Logger().Fatal("failed to train model", zap.Error(err))
		}
		switch result.Source {
		case logics.SourceArtifact:
			fmt.Printf("Model loaded from artifact with %d items.\n", result.Items)
		default:
			fmt.Printf("Model trained with %d items.\n", result.Items)
		}
	},
}

// showProgress renders correlation progress until done is closed.
func showProgress(tracer *progress.Tracer, done <-chan struct{}) {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("correlate"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionClearOnFinish())
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			_ = bar.Finish()
			return
		case <-ticker.C:
			for _, p := range tracer.List() {
				if p.Name == "train/correlate" && p.Total > 0 {
					if bar.GetMax() != p.Total {
						bar.ChangeMax(p.Total)
					}
					_ = bar.Set(p.Count)
				}
			}
		}
	}
}

func init() {
	trainCommand.Flags().Bool("force", false, "rebuild the model even if an artifact exists")
}
