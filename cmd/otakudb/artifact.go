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
	"fmt"
	"io"
	"os"
	"time"

	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/otakudb/otakudb/base/log"
	"github.com/otakudb/otakudb/storage/blob"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var artifactCommand = &cobra.Command{
	Use:   "artifact",
	Short: "Manage stored model artifacts.",
}

var listArtifactCommand = &cobra.Command{
	Use:   "list",
	Short: "List stored artifacts.",
	Run: func(cmd *cobra.Command, args []string) {
		store := openBlobStore(cmd)
		if err := printArtifacts(os.Stdout, store); err != nil {
			log.Logger().Fatal("failed to list artifacts", zap.Error(err))
		}
	},
}

var removeArtifactCommand = &cobra.Command{
	Use:   "remove name...",
	Short: "Remove stored artifacts. The next training rebuilds the model.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := openBlobStore(cmd)
		for _, name := range args {
			if err := store.Remove(name); err != nil {
				log.Logger().Fatal("failed to remove artifact", zap.String("name", name), zap.Error(err))
			}
			fmt.Printf("Artifact %s removed.\n", name)
		}
	},
}

func openBlobStore(cmd *cobra.Command) blob.Store {
	cfg := setup(cmd)
	store, err := blob.NewStore(cfg.Blob)
	if err != nil {
		log.Logger().Fatal("failed to open blob store", zap.Error(err))
	}
	return store
}

// printArtifacts writes a table of stored objects and their modification times.
func printArtifacts(w io.Writer, store blob.Store) error {
	names, err := store.List()
	if err != nil {
		return errors.Trace(err)
	}
	table := tablewriter.NewWriter(w)
	table.Header("Name", "Modified")
	for _, name := range names {
		modTime, err := store.Stat(name)
		if errors.Is(err, errors.NotFound) {
			// removed since listed
			continue
		} else if err != nil {
			return errors.Trace(err)
		}
		if err = table.Append([]string{name, modTime.Format(time.RFC3339)}); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(table.Render())
}

func init() {
	artifactCommand.AddCommand(listArtifactCommand, removeArtifactCommand)
}
