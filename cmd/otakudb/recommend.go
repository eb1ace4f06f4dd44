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
	"os"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/otakudb/otakudb/base/log"
	"github.com/otakudb/otakudb/logics"
	"github.com/otakudb/otakudb/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var recommendCommand = &cobra.Command{
	Use:   "recommend item=rating...",
	Short: "Recommend items for ratings given on the command line.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ratings, err := parseRatingArgs(args)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg := setup(cmd)
		if debug, _ := cmd.Flags().GetBool("debug"); !debug {
			log.CloseLogger()
		}
		if topN, _ := cmd.Flags().GetInt("top"); topN > 0 {
			cfg.Recommend.TopN = topN
		}
		s, err := server.NewServer(cfg)
		if err != nil {
			log.Logger().Fatal("failed to create server", zap.Error(err))
		}
		defer s.Close()
		if _, err = s.Trainer.Train(context.Background(), false); err != nil {
			log.Logger().Fatal("failed to load model", zap.Error(err))
		}
		result, err := s.Recommender.Recommend(ratings)
		if err != nil {
			log.Logger().Fatal("failed to recommend", zap.Error(err))
		}
		if err = printRecommendation(result); err != nil {
			log.Logger().Fatal("failed to print recommendation", zap.Error(err))
		}
	},
}

// parseRatingArgs parses arguments of the form item=rating.
func parseRatingArgs(args []string) (map[int64]float64, error) {
	ratings := make(map[int64]float64, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, errors.NotValidf("argument %q", arg)
		}
		itemId, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, errors.NotValidf("item id %q", key)
		}
		rating, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, errors.NotValidf("rating %q", value)
		}
		ratings[itemId] = rating
	}
	return ratings, nil
}

func printRecommendation(result *logics.Recommendation) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Rank", "ID", "Name", "Score")
	for i, item := range result.Items {
		if err := table.Append([]string{
			strconv.Itoa(i + 1),
			strconv.FormatInt(item.ItemId, 10),
			item.Name,
			strconv.FormatFloat(item.Score, 'f', 4, 64),
		}); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(table.Render())
}

func init() {
	recommendCommand.Flags().Int("top", 0, "number of recommended items")
}
