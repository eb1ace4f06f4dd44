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

package logics

import (
	"context"
	"unicode/utf8"

	"github.com/juju/errors"
	"github.com/otakudb/otakudb/base/log"
	"github.com/otakudb/otakudb/storage/data"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	MaxUsernameLength = 256
	// MaxPasswordBytes is the input limit of bcrypt.
	MaxPasswordBytes = 72
)

// Credentials registers and verifies accounts. Passwords are stored as salted
// bcrypt hashes.
type Credentials struct {
	db   data.Database
	cost int

	// dummyHash is compared when the user is unknown.
	dummyHash []byte
	compare   func(hash, password []byte) error
}

func NewCredentials(db data.Database, cost int) *Credentials {
	dummyHash, err := bcrypt.GenerateFromPassword([]byte("otakudb"), cost)
	if err != nil {
		log.Logger().Warn("failed to create dummy password hash", zap.Int("cost", cost), zap.Error(err))
	}
	return &Credentials{
		db:        db,
		cost:      cost,
		dummyHash: dummyHash,
		compare:   bcrypt.CompareHashAndPassword,
	}
}

func validate(username, password string) error {
	if username == "" {
		return errors.NotValidf("empty username")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return errors.NotValidf("username longer than %d characters", MaxUsernameLength)
	}
	if password == "" {
		return errors.NotValidf("empty password")
	}
	if len(password) > MaxPasswordBytes {
		return errors.NotValidf("password longer than %d bytes", MaxPasswordBytes)
	}
	return nil
}

// Exists reports whether a username is taken.
func (c *Credentials) Exists(ctx context.Context, username string) (bool, error) {
	exists, err := c.db.UserExists(ctx, username)
	return exists, errors.Trace(err)
}

// Register creates an account. It fails with data.ErrDuplicateUser if the
// username is taken.
func (c *Credentials) Register(ctx context.Context, username, password string) error {
	if err := validate(username, password); err != nil {
		return errors.Trace(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.cost)
	if err != nil {
		return errors.Trace(err)
	}
	if err = c.db.InsertUser(ctx, data.User{Username: username, Password: string(hash)}); err != nil {
		return errors.Trace(err)
	}
	log.Logger().Info("register user", zap.String("username", username))
	return nil
}

// Verify checks a password. Unknown users and wrong passwords both fail with
// ErrBadCredentials.
func (c *Credentials) Verify(ctx context.Context, username, password string) error {
	user, err := c.db.GetUser(ctx, username)
	if errors.Is(err, errors.NotFound) {
		if c.dummyHash != nil {
			_ = c.compare(c.dummyHash, []byte(password))
		}
		return errors.Annotate(ErrBadCredentials, "unknown user")
	} else if err != nil {
		return errors.Trace(err)
	}
	if err = c.compare([]byte(user.Password), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return errors.Annotate(ErrBadCredentials, "wrong password")
		}
		return errors.Trace(err)
	}
	return nil
}
