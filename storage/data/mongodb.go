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

	"github.com/juju/errors"
	"github.com/otakudb/otakudb/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoAccount struct {
	Usuario     string `bson:"_id"`
	Contrasenya string `bson:"contrasenya"`
}

// MongoDB stores accounts in a collection keyed by username.
type MongoDB struct {
	storage.TablePrefix
	client *mongo.Client
	dbName string
}

func (db *MongoDB) collection() *mongo.Collection {
	return db.client.Database(db.dbName).Collection(db.AccountsTable())
}

// Init creates the accounts collection.
func (db *MongoDB) Init() error {
	ctx := context.Background()
	d := db.client.Database(db.dbName)
	collections, err := d.ListCollectionNames(ctx, bson.M{"name": db.AccountsTable()})
	if err != nil {
		return storeError(err)
	}
	if len(collections) == 0 {
		if err = d.CreateCollection(ctx, db.AccountsTable()); err != nil {
			return storeError(err)
		}
	}
	return nil
}

func (db *MongoDB) Ping() error {
	if err := db.client.Ping(context.Background(), nil); err != nil {
		return storeError(err)
	}
	return nil
}

func (db *MongoDB) Close() error {
	return db.client.Disconnect(context.Background())
}

func (db *MongoDB) Purge() error {
	if _, err := db.collection().DeleteMany(context.Background(), bson.M{}); err != nil {
		return storeError(err)
	}
	return nil
}

func (db *MongoDB) UserExists(ctx context.Context, username string) (bool, error) {
	count, err := db.collection().CountDocuments(ctx, bson.M{"_id": username})
	if err != nil {
		return false, storeError(err)
	}
	return count > 0, nil
}

func (db *MongoDB) GetUser(ctx context.Context, username string) (*User, error) {
	var account mongoAccount
	err := db.collection().FindOne(ctx, bson.M{"_id": username}).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Trace(ErrUserNotExist)
	} else if err != nil {
		return nil, storeError(err)
	}
	return &User{Username: account.Usuario, Password: account.Contrasenya}, nil
}

func (db *MongoDB) InsertUser(ctx context.Context, user User) error {
	_, err := db.collection().InsertOne(ctx, mongoAccount{Usuario: user.Username, Contrasenya: user.Password})
	if mongo.IsDuplicateKeyError(err) {
		return errors.Trace(ErrDuplicateUser)
	} else if err != nil {
		return storeError(err)
	}
	return nil
}
