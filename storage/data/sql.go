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

package data

import (
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
	"github.com/juju/errors"
	_ "github.com/lib/pq"
	"github.com/otakudb/otakudb/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	_ "modernc.org/sqlite"
)

type SQLDriver int

const (
	MySQL SQLDriver = iota
	Postgres
	SQLite
)

// SQLAccount is a row of the accounts table.
type SQLAccount struct {
	Usuario     string `gorm:"column:usuario;type:varchar(256);primaryKey"`
	Contrasenya string `gorm:"column:contrasenya;type:varchar(256);not null"`
}

// SQLDatabase stores accounts in MySQL, PostgreSQL or SQLite.
type SQLDatabase struct {
	storage.TablePrefix
	gormDB *gorm.DB
	client *sql.DB
	driver SQLDriver
}

// Init creates the accounts table.
func (d *SQLDatabase) Init() error {
	db := d.gormDB
	if d.driver == MySQL {
		db = db.Set("gorm:table_options", "ENGINE=InnoDB")
	}
	if err := db.Table(d.AccountsTable()).AutoMigrate(&SQLAccount{}); err != nil {
		return storeError(err)
	}
	return nil
}

func (d *SQLDatabase) Ping() error {
	if err := d.client.Ping(); err != nil {
		return storeError(err)
	}
	return nil
}

func (d *SQLDatabase) Close() error {
	return d.client.Close()
}

func (d *SQLDatabase) Purge() error {
	if err := d.gormDB.Exec("DELETE FROM " + d.AccountsTable()).Error; err != nil {
		return storeError(err)
	}
	return nil
}

func (d *SQLDatabase) UserExists(ctx context.Context, username string) (bool, error) {
	var count int64
	err := d.gormDB.WithContext(ctx).Table(d.AccountsTable()).
		Where("usuario = ?", username).
		Count(&count).Error
	if err != nil {
		return false, storeError(err)
	}
	return count > 0, nil
}

func (d *SQLDatabase) GetUser(ctx context.Context, username string) (*User, error) {
	var account SQLAccount
	err := d.gormDB.WithContext(ctx).Table(d.AccountsTable()).
		Where("usuario = ?", username).
		Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Trace(ErrUserNotExist)
	} else if err != nil {
		return nil, storeError(err)
	}
	return &User{Username: account.Usuario, Password: account.Contrasenya}, nil
}

func (d *SQLDatabase) InsertUser(ctx context.Context, user User) error {
	result := d.gormDB.WithContext(ctx).Table(d.AccountsTable()).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&SQLAccount{Usuario: user.Username, Contrasenya: user.Password})
	if result.Error != nil {
		return storeError(result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.Trace(ErrDuplicateUser)
	}
	return nil
}
