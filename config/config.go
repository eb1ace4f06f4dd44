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

package config

import (
	"os"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

// Config is the configuration of otakudb.
type Config struct {
	Dataset   DatasetConfig   `mapstructure:"dataset"`
	Model     ModelConfig     `mapstructure:"model"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Blob      BlobConfig      `mapstructure:"blob"`
	Server    ServerConfig    `mapstructure:"server"`
}

// DatasetConfig locates the raw catalog and rating logs.
type DatasetConfig struct {
	CatalogPath string  `mapstructure:"catalog_path" validate:"required"`
	RatingsPath string  `mapstructure:"ratings_path" validate:"required"`
	NotRated    float32 `mapstructure:"not_rated"`
}

// ModelConfig holds the thresholds of the correlation model.
type ModelConfig struct {
	PopularityThreshold int    `mapstructure:"popularity_threshold" validate:"gte=0"`
	MinCoRatings        int    `mapstructure:"min_co_ratings" validate:"gte=2"`
	Jobs                int    `mapstructure:"jobs" validate:"gte=1"`
	ArtifactName        string `mapstructure:"artifact_name" validate:"required"`
}

type RecommendConfig struct {
	TopN       int   `mapstructure:"top_n" validate:"gt=0"`
	SampleSize int   `mapstructure:"sample_size" validate:"gt=0"`
	Seed       int64 `mapstructure:"seed"`
}

type DatabaseConfig struct {
	// DataStore keeps credentials. Empty disables registration and login.
	DataStore   string `mapstructure:"data_store"`
	TablePrefix string `mapstructure:"table_prefix"`
	// MetaStore keeps model metadata.
	MetaStore string `mapstructure:"meta_store"`
}

// BlobConfig selects where the model artifact lives. S3 wins over GCS, GCS
// over Azure, and the local directory is the fallback.
type BlobConfig struct {
	Dir   string          `mapstructure:"dir" validate:"required"`
	S3    S3Config        `mapstructure:"s3"`
	GCS   GCSConfig       `mapstructure:"gcs"`
	Azure AzureBlobConfig `mapstructure:"azure"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

type GCSConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type AzureBlobConfig struct {
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	ConnectionString string `mapstructure:"connection_string"`
	Endpoint         string `mapstructure:"endpoint"`
	Container        string `mapstructure:"container"`
	Prefix           string `mapstructure:"prefix"`
}

type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	// AuthRateLimit is the number of register/login requests per second. 0 disables throttling.
	AuthRateLimit float64 `mapstructure:"auth_rate_limit" validate:"gte=0"`
	AuthBurst     int     `mapstructure:"auth_burst" validate:"gte=1"`
	BcryptCost    int     `mapstructure:"bcrypt_cost" validate:"gte=4,lte=31"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Dataset: DatasetConfig{
			CatalogPath: "anime.csv",
			RatingsPath: "rating.csv",
			NotRated:    -1,
		},
		Model: ModelConfig{
			PopularityThreshold: 300,
			MinCoRatings:        250,
			Jobs:                runtime.NumCPU(),
			ArtifactName:        "model_corr_matrix.bin",
		},
		Recommend: RecommendConfig{
			TopN:       10,
			SampleSize: 100,
		},
		Database: DatabaseConfig{
			MetaStore: "sqlite://cache/meta.sqlite3",
		},
		Blob: BlobConfig{
			Dir: "cache",
		},
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           5000,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Minute,
			AllowedOrigins: []string{"*"},
			AuthRateLimit:  10,
			AuthBurst:      20,
			BcryptCost:     10,
		},
	}
}

func setDefault(v *viper.Viper) {
	defaultConfig := GetDefaultConfig()
	// [dataset]
	v.SetDefault("dataset.catalog_path", defaultConfig.Dataset.CatalogPath)
	v.SetDefault("dataset.ratings_path", defaultConfig.Dataset.RatingsPath)
	v.SetDefault("dataset.not_rated", defaultConfig.Dataset.NotRated)
	// [model]
	v.SetDefault("model.popularity_threshold", defaultConfig.Model.PopularityThreshold)
	v.SetDefault("model.min_co_ratings", defaultConfig.Model.MinCoRatings)
	v.SetDefault("model.jobs", defaultConfig.Model.Jobs)
	v.SetDefault("model.artifact_name", defaultConfig.Model.ArtifactName)
	// [recommend]
	v.SetDefault("recommend.top_n", defaultConfig.Recommend.TopN)
	v.SetDefault("recommend.sample_size", defaultConfig.Recommend.SampleSize)
	v.SetDefault("recommend.seed", defaultConfig.Recommend.Seed)
	// [database]
	v.SetDefault("database.data_store", defaultConfig.Database.DataStore)
	v.SetDefault("database.table_prefix", defaultConfig.Database.TablePrefix)
	v.SetDefault("database.meta_store", defaultConfig.Database.MetaStore)
	// [blob]
	v.SetDefault("blob.dir", defaultConfig.Blob.Dir)
	v.SetDefault("blob.s3.use_ssl", defaultConfig.Blob.S3.UseSSL)
	// [server]
	v.SetDefault("server.host", defaultConfig.Server.Host)
	v.SetDefault("server.port", defaultConfig.Server.Port)
	v.SetDefault("server.read_timeout", defaultConfig.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", defaultConfig.Server.WriteTimeout)
	v.SetDefault("server.allowed_origins", defaultConfig.Server.AllowedOrigins)
	v.SetDefault("server.auth_rate_limit", defaultConfig.Server.AuthRateLimit)
	v.SetDefault("server.auth_burst", defaultConfig.Server.AuthBurst)
	v.SetDefault("server.bcrypt_cost", defaultConfig.Server.BcryptCost)
}

type configBinding struct {
	key string
	env string
}

var bindings = []configBinding{
	{"dataset.catalog_path", "OTAKUDB_CATALOG_PATH"},
	{"dataset.ratings_path", "OTAKUDB_RATINGS_PATH"},
	{"database.data_store", "OTAKUDB_DATA_STORE"},
	{"database.table_prefix", "OTAKUDB_TABLE_PREFIX"},
	{"database.meta_store", "OTAKUDB_META_STORE"},
	{"blob.dir", "OTAKUDB_BLOB_DIR"},
	{"blob.s3.endpoint", "OTAKUDB_S3_ENDPOINT"},
	{"blob.s3.access_key_id", "OTAKUDB_S3_ACCESS_KEY_ID"},
	{"blob.s3.secret_access_key", "OTAKUDB_S3_SECRET_ACCESS_KEY"},
	{"blob.gcs.credentials_file", "OTAKUDB_GCS_CREDENTIALS_FILE"},
	{"blob.azure.account_name", "OTAKUDB_AZURE_ACCOUNT_NAME"},
	{"blob.azure.account_key", "OTAKUDB_AZURE_ACCOUNT_KEY"},
	{"blob.azure.connection_string", "OTAKUDB_AZURE_CONNECTION_STRING"},
	{"server.host", "OTAKUDB_SERVER_HOST"},
	{"server.port", "OTAKUDB_SERVER_PORT"},
	{"server.allowed_origins", "OTAKUDB_SERVER_ALLOWED_ORIGINS"},
}

// LoadConfig loads configuration from a TOML file. An empty path yields the
// default configuration. Environment variables override both.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefault(v)
	for _, binding := range bindings {
		if err := v.BindEnv(binding.key, binding.env); err != nil {
			return nil, errors.Trace(err)
		}
	}
	if path != "" {
		// check if file exist
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Trace(err)
		}
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}
	var conf Config
	if err := v.Unmarshal(&conf, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

func (config *Config) Validate() error {
	validate := validator.New()
	return validate.Struct(config)
}
