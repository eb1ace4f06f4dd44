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

package client

import "fmt"

// Error is returned for responses other than 200 OK.
type Error struct {
	StatusCode int
	Message    string `json:"error"`
	Category   string `json:"category"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d %s)", e.Message, e.StatusCode, e.Category)
}

type TrainResult struct {
	Message string `json:"message"`
	Source  string `json:"source"`
	Items   int    `json:"items"`
}

type ScoredItem struct {
	ItemId int64   `json:"id"`
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
}

type RatedItem struct {
	ItemId int64   `json:"id"`
	Name   string  `json:"name"`
	Rating float64 `json:"rating"`
}

type Recommendation struct {
	Ratings         []RatedItem  `json:"ratings"`
	Recommendations []ScoredItem `json:"recommendations"`
}

type Item struct {
	ItemId int64  `json:"id"`
	Name   string `json:"name"`
}

type itemsResponse struct {
	Items []Item `json:"items"`
}

type versionResponse struct {
	Version string `json:"version"`
}

type userResponse struct {
	Username string `json:"username"`
	Exists   bool   `json:"exists"`
}

type account struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type success struct {
	Message string `json:"message"`
}
