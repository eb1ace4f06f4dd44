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
	"os/signal"
	"syscall"
	"time"

	"github.com/otakudb/otakudb/base/log"
	"github.com/otakudb/otakudb/cmd/version"
	"github.com/otakudb/otakudb/config"
	"github.com/otakudb/otakudb/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCommand = &cobra.Command{
	Use:   "otakudb",
	Short: "Anime recommender based on item-item rating correlations.",
	Run: func(cmd *cobra.Command, args []string) {
		// Show version
		if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
			fmt.Println(version.BuildInfo())
			return
		}
		serve(cmd)
	},
}

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST-ful API server.",
	Run: func(cmd *cobra.Command, args []string) {
		serve(cmd)
	},
}

// setup configures logging and loads configuration.
func setup(cmd *cobra.Command) *config.Config {
	debug, _ := cmd.Flags().GetBool("debug")
	log.SetLogger(cmd.Flags(), debug)
	configPath, _ := cmd.Flags().GetString("config")
	log.Logger().Info("load config", zap.String("config", configPath))
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Logger().Fatal("failed to load config", zap.Error(err))
	}
	return cfg
}

func serve(cmd *cobra.Command) {
	cfg := setup(cmd)
	s, err := server.NewServer(cfg)
	if err != nil {
		log.Logger().Fatal("failed to create server", zap.Error(err))
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.Logger().Error("failed to close stores", zap.Error(err))
		}
	}()
	// Stop server
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(ctx); err != nil {
			log.Logger().Error("failed to shutdown server", zap.Error(err))
		}
	}()
	if err = s.Serve(); err != nil {
		log.Logger().Fatal("failed to serve", zap.Error(err))
	}
	log.Logger().Info("stop otakudb successfully")
}

func init() {
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	rootCommand.Flags().BoolP("version", "v", false, "otakudb version")
	rootCommand.AddCommand(serveCommand, trainCommand, recommendCommand, artifactCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute command", zap.Error(err))
	}
}
