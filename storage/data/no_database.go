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

import "context"

// NoDatabase is used when no credential store is configured.
type NoDatabase struct{}

// Init succeeds so that a server without accounts can start.
func (NoDatabase) Init() error {
	return nil
}

func (NoDatabase) Ping() error {
	return ErrNoDatabase
}

func (NoDatabase) Close() error {
	return nil
}

func (NoDatabase) Purge() error {
	return ErrNoDatabase
}

func (NoDatabase) UserExists(context.Context, string) (bool, error) {
	return false, ErrNoDatabase
}

func (NoDatabase) GetUser(context.Context, string) (*User, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) InsertUser(context.Context, User) error {
	return ErrNoDatabase
}
