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

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

type OtakuClient struct {
	entryPoint string
	httpClient http.Client
}

func NewOtakuClient(entryPoint string) *OtakuClient {
	return &OtakuClient{entryPoint: entryPoint}
}

func request[Response any](ctx context.Context, c *OtakuClient, method, path string, body any) (result Response, err error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return result, err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.entryPoint+path, reader)
	if err != nil {
		return result, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return result, err
	}
	defer resp.Body.Close()
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, err
	}
	if resp.StatusCode != http.StatusOK {
		e := &Error{StatusCode: resp.StatusCode}
		if err = json.Unmarshal(buf, e); err != nil {
			e.Message = string(buf)
		}
		return result, e
	}
	err = json.Unmarshal(buf, &result)
	return result, err
}

func (c *OtakuClient) Train(ctx context.Context, force bool) (*TrainResult, error) {
	result, err := request[TrainResult](ctx, c, http.MethodPost, "/api/train?force="+strconv.FormatBool(force), nil)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *OtakuClient) Recommend(ctx context.Context, ratings map[int64]float64) (*Recommendation, error) {
	payload := make(map[string]float64, len(ratings))
	for itemId, rating := range ratings {
		payload[strconv.FormatInt(itemId, 10)] = rating
	}
	result, err := request[Recommendation](ctx, c, http.MethodPost, "/api/recommend", payload)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *OtakuClient) GetItems(ctx context.Context, n int) ([]Item, error) {
	query := url.Values{}
	query.Set("n", strconv.Itoa(n))
	result, err := request[itemsResponse](ctx, c, http.MethodGet, fmt.Sprintf("/api/items?%s", query.Encode()), nil)
	return result.Items, err
}

func (c *OtakuClient) GetVersion(ctx context.Context) (string, error) {
	result, err := request[versionResponse](ctx, c, http.MethodGet, "/api/version", nil)
	return result.Version, err
}

// UserExists reports whether a username is taken.
func (c *OtakuClient) UserExists(ctx context.Context, username string) (bool, error) {
	result, err := request[userResponse](ctx, c, http.MethodGet, "/api/users/"+url.PathEscape(username), nil)
	return result.Exists, err
}

func (c *OtakuClient) Register(ctx context.Context, username, password string) error {
	_, err := request[success](ctx, c, http.MethodPost, "/api/register", account{Username: username, Password: password})
	return err
}

func (c *OtakuClient) Login(ctx context.Context, username, password string) error {
	_, err := request[success](ctx, c, http.MethodPost, "/api/login", account{Username: username, Password: password})
	return err
}
