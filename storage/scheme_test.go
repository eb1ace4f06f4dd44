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

package storage

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestAppendURLParams(t *testing.T) {
	url, err := AppendURLParams("sqlite:///tmp/otakudb.db", []lo.Tuple2[string, string]{
		{A: "_pragma", B: "busy_timeout(10000)"},
		{A: "_pragma", B: "journal_mode(wal)"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "sqlite:///tmp/otakudb.db?_pragma=busy_timeout%2810000%29&_pragma=journal_mode%28wal%29", url)
}

func TestAppendMySQLParams(t *testing.T) {
	dsn, err := AppendMySQLParams("root:password@tcp(localhost:3306)/logins_api_anime?sql_mode=ANSI", map[string]string{
		"sql_mode":  "TRADITIONAL",
		"time_zone": "UTC",
	})
	assert.NoError(t, err)
	cfg, err := mysql.ParseDSN(dsn)
	assert.NoError(t, err)
	assert.Equal(t, "logins_api_anime", cfg.DBName)
	assert.Equal(t, "ANSI", cfg.Params["sql_mode"])
	assert.Equal(t, "UTC", cfg.Params["time_zone"])
}

func TestTablePrefix(t *testing.T) {
	prefix := TablePrefix("otaku_")
	assert.Equal(t, "otaku_usuario_contrasenyas", prefix.AccountsTable())
	assert.Equal(t, "otaku_key_values", prefix.KeyValuesTable())
	assert.Equal(t, "otaku_model", prefix.Key("model"))
}
