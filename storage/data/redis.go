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
	"github.com/redis/go-redis/v9"
)

// Redis stores accounts in a single hash from username to password hash.
type Redis struct {
	storage.TablePrefix
	client *redis.Client
}

func (r *Redis) key() string {
	return r.AccountsTable()
}

// Init does nothing.
func (r *Redis) Init() error {
	return nil
}

func (r *Redis) Ping() error {
	if err := r.client.Ping(context.Background()).Err(); err != nil {
		return storeError(err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Purge() error {
	if err := r.client.Del(context.Background(), r.key()).Err(); err != nil {
		return storeError(err)
	}
	return nil
}

func (r *Redis) UserExists(ctx context.Context, username string) (bool, error) {
	exists, err := r.client.HExists(ctx, r.key(), username).Result()
	if err != nil {
		return false, storeError(err)
	}
	return exists, nil
}

func (r *Redis) GetUser(ctx context.Context, username string) (*User, error) {
	password, err := r.client.HGet(ctx, r.key(), username).Result()
	if errors.Is(err, redis.Nil) {
		return nil, errors.Trace(ErrUserNotExist)
	} else if err != nil {
		return nil, storeError(err)
	}
	return &User{Username: username, Password: password}, nil
}

func (r *Redis) InsertUser(ctx context.Context, user User) error {
	ok, err := r.client.HSetNX(ctx, r.key(), user.Username, user.Password).Result()
	if err != nil {
		return storeError(err)
	}
	if !ok {
		return errors.Trace(ErrDuplicateUser)
	}
	return nil
}
