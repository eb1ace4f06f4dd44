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

package server

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/juju/ratelimit"
	"github.com/otakudb/otakudb/base/log"
	"github.com/otakudb/otakudb/base/progress"
	"github.com/otakudb/otakudb/cmd/version"
	"github.com/otakudb/otakudb/config"
	"github.com/otakudb/otakudb/logics"
	"github.com/otakudb/otakudb/storage/data"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/emicklei/go-restful/otelrestful"
	"go.uber.org/zap"
)

const RequestIdHeader = "X-Request-ID"

// RestServer implements the REST-ful API.
type RestServer struct {
	Config      *config.Config
	Cache       *logics.ModelCache
	Trainer     *logics.Trainer
	Recommender *logics.Recommender
	Sampler     *logics.Sampler
	Credentials *logics.Credentials
	WebService  *restful.WebService

	authBucket *ratelimit.Bucket
}

// Success is returned by operations without a result.
type Success struct {
	Message string `json:"message"`
}

// ErrorResponse is returned by failed requests. Details stay in server logs.
type ErrorResponse struct {
	Error    string `json:"error"`
	Category string `json:"category"`
}

type TrainResponse struct {
	Message string `json:"message"`
	Source  string `json:"source"`
	Items   int    `json:"items"`
}

type RecommendResponse struct {
	Ratings         []logics.RatedItem  `json:"ratings"`
	Recommendations []logics.ScoredItem `json:"recommendations"`
}

type ItemsResponse struct {
	Items []logics.CatalogItem `json:"items"`
}

type VersionResponse struct {
	Version string `json:"version"`
}

type UserResponse struct {
	Username string `json:"username"`
	Exists   bool   `json:"exists"`
}

type Account struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Container assembles the web service, API docs and metrics.
func (s *RestServer) Container() *restful.Container {
	s.CreateWebService()
	container := restful.NewContainer()
	container.Add(s.WebService)
	container.Add(restfulspec.NewOpenAPIService(restfulspec.Config{
		WebServices: []*restful.WebService{s.WebService},
		APIPath:     "/apidocs.json",
	}))
	container.Handle("/metrics", promhttp.Handler())
	// cross-origin requests
	cors := restful.CrossOriginResourceSharing{
		AllowedHeaders: []string{"Content-Type", "Accept", RequestIdHeader},
		ExposeHeaders:  []string{RequestIdHeader},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		CookiesAllowed: false,
		Container:      container,
	}
	if !lo.Contains(s.Config.Server.AllowedOrigins, "*") {
		cors.AllowedDomains = s.Config.Server.AllowedOrigins
	}
	container.Filter(RequestIdFilter)
	container.Filter(cors.Filter)
	container.Filter(container.OPTIONSFilter)
	return container
}

// RequestIdFilter tags each request with an id, reusing the one sent by the client.
func RequestIdFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	requestId := req.HeaderParameter(RequestIdHeader)
	if requestId == "" {
		requestId = uuid.New().String()
	}
	resp.Header().Set(RequestIdHeader, requestId)
	chain.ProcessFilter(req, resp)
}

func LogFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	start := time.Now()
	chain.ProcessFilter(req, resp)
	RequestSeconds.WithLabelValues(req.SelectedRoutePath()).Observe(time.Since(start).Seconds())
	log.ResponseLogger(resp).Info(fmt.Sprintf("%s %s", req.Request.Method, req.Request.URL),
		zap.Int("status_code", resp.StatusCode()),
		zap.Duration("duration", time.Since(start)))
}

// throttle rejects register and login requests beyond the configured rate.
func (s *RestServer) throttle(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	if s.authBucket != nil && s.authBucket.TakeAvailable(1) == 0 {
		ThrottledTotal.Inc()
		writeError(resp, http.StatusTooManyRequests, "throttled", "too many requests")
		return
	}
	chain.ProcessFilter(req, resp)
}

// CreateWebService creates web service.
func (s *RestServer) CreateWebService() {
	if s.Config.Server.AuthRateLimit > 0 {
		s.authBucket = ratelimit.NewBucketWithRate(s.Config.Server.AuthRateLimit, int64(s.Config.Server.AuthBurst))
	}
	ws := new(restful.WebService)
	ws.Produces(restful.MIME_JSON)
	ws.Path("/api/")
	ws.Filter(LogFilter)
	ws.Filter(otelrestful.OTelFilter("otakudb"))

	/* Model */

	ws.Route(ws.POST("/train").To(s.train).
		Doc("Train the correlation model or load the stored artifact.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"model"}).
		Param(ws.QueryParameter("force", "rebuild even if an artifact exists").DataType("boolean").DefaultValue("false")).
		Returns(http.StatusOK, "OK", TrainResponse{}).
		Writes(TrainResponse{}))
	ws.Route(ws.GET("/model").To(s.getModel).
		Doc("Get metadata of the current model.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"model"}).
		Returns(http.StatusOK, "OK", logics.ModelMeta{}).
		Writes(logics.ModelMeta{}))
	ws.Route(ws.GET("/progress").To(s.getProgress).
		Doc("Get progress of training.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"model"}).
		Returns(http.StatusOK, "OK", []progress.Progress{}).
		Writes([]progress.Progress{}))

	/* Recommendation */

	ws.Route(ws.POST("/recommend").To(s.recommend).
		Doc("Recommend items correlated with rated items.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Consumes(restful.MIME_JSON).
		Reads(map[string]float64{}).
		Returns(http.StatusOK, "OK", RecommendResponse{}).
		Writes(RecommendResponse{}))
	ws.Route(ws.GET("/items").To(s.getItems).
		Doc("Get random items of the model.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.QueryParameter("n", "number of returned items").DataType("integer")).
		Returns(http.StatusOK, "OK", ItemsResponse{}).
		Writes(ItemsResponse{}))

	/* Accounts */

	ws.Route(ws.GET("/users/{username}").To(s.getUser).
		Doc("Check whether a username is taken.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"account"}).
		Filter(s.throttle).
		Param(ws.PathParameter("username", "username to check").DataType("string")).
		Returns(http.StatusOK, "OK", UserResponse{}).
		Writes(UserResponse{}))
	ws.Route(ws.POST("/register").To(s.register).
		Doc("Register an account.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"account"}).
		Filter(s.throttle).
		Consumes(restful.MIME_JSON).
		Reads(Account{}).
		Returns(http.StatusOK, "OK", Success{}).
		Writes(Success{}))
	ws.Route(ws.POST("/login").To(s.login).
		Doc("Verify an account.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"account"}).
		Filter(s.throttle).
		Consumes(restful.MIME_JSON).
		Reads(Account{}).
		Returns(http.StatusOK, "OK", Success{}).
		Writes(Success{}))

	ws.Route(ws.GET("/version").To(s.getVersion).
		Doc("Get version.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"version"}).
		Writes(VersionResponse{}))
	s.WebService = ws
}

func (s *RestServer) train(request *restful.Request, response *restful.Response) {
	force, err := ParseBool(request, "force", false)
	if err != nil {
		BadRequest(response, err)
		return
	}
	// keep training after the client hangs up
	ctx := context.WithoutCancel(request.Request.Context())
	result, err := s.Trainer.Train(ctx, force)
	if err != nil {
		Error(response, err)
		return
	}
	message := fmt.Sprintf("model trained with %d items", result.Items)
	if result.Source == logics.SourceArtifact {
		message = fmt.Sprintf("model loaded from artifact with %d items", result.Items)
	}
	Ok(response, TrainResponse{Message: message, Source: result.Source, Items: result.Items})
}

func (s *RestServer) getModel(_ *restful.Request, response *restful.Response) {
	info, err := s.Trainer.Metadata()
	if err != nil {
		Error(response, err)
		return
	}
	Ok(response, info)
}

func (s *RestServer) getProgress(_ *restful.Request, response *restful.Response) {
	Ok(response, s.Trainer.Tracer().List())
}

// parseRatings converts a payload of item ids to ratings.
func parseRatings(payload map[string]*float64) (map[int64]float64, error) {
	if len(payload) == 0 {
		return nil, errors.NotValidf("empty ratings")
	}
	ratings := make(map[int64]float64, len(payload))
	for key, value := range payload {
		itemId, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, errors.NotValidf("item id %q", key)
		}
		if value == nil || math.IsNaN(*value) || math.IsInf(*value, 0) {
			return nil, errors.NotValidf("rating of item %d", itemId)
		}
		ratings[itemId] = *value
	}
	return ratings, nil
}

func (s *RestServer) recommend(request *restful.Request, response *restful.Response) {
	var payload map[string]*float64
	if err := request.ReadEntity(&payload); err != nil {
		BadRequest(response, errors.NewNotValid(err, "ratings"))
		return
	}
	ratings, err := parseRatings(payload)
	if err != nil {
		BadRequest(response, err)
		return
	}
	result, err := s.Recommender.Recommend(ratings)
	if err != nil {
		Error(response, err)
		return
	}
	Ok(response, RecommendResponse{Ratings: result.Input, Recommendations: result.Items})
}

func (s *RestServer) getItems(request *restful.Request, response *restful.Response) {
	n, err := ParseInt(request, "n", s.Config.Recommend.SampleSize)
	if err != nil {
		BadRequest(response, err)
		return
	}
	items, err := s.Sampler.Sample(n)
	if err != nil {
		Error(response, err)
		return
	}
	Ok(response, ItemsResponse{Items: items})
}

func (s *RestServer) readAccount(request *restful.Request, response *restful.Response) (Account, bool) {
	var account Account
	if err := request.ReadEntity(&account); err != nil {
		BadRequest(response, errors.NewNotValid(err, "account"))
		return account, false
	}
	return account, true
}

func (s *RestServer) getUser(request *restful.Request, response *restful.Response) {
	username := request.PathParameter("username")
	exists, err := s.Credentials.Exists(request.Request.Context(), username)
	if err != nil {
		Error(response, err)
		return
	}
	Ok(response, UserResponse{Username: username, Exists: exists})
}

func (s *RestServer) register(request *restful.Request, response *restful.Response) {
	account, ok := s.readAccount(request, response)
	if !ok {
		return
	}
	if err := s.Credentials.Register(request.Request.Context(), account.Username, account.Password); err != nil {
		Error(response, err)
		return
	}
	Ok(response, Success{Message: "user registered"})
}

func (s *RestServer) login(request *restful.Request, response *restful.Response) {
	account, ok := s.readAccount(request, response)
	if !ok {
		return
	}
	if err := s.Credentials.Verify(request.Request.Context(), account.Username, account.Password); err != nil {
		Error(response, err)
		return
	}
	Ok(response, Success{Message: "login succeeded"})
}

func (s *RestServer) getVersion(_ *restful.Request, response *restful.Response) {
	Ok(response, VersionResponse{Version: version.Version})
}

func ParseInt(request *restful.Request, name string, fallback int) (int, error) {
	valueString := request.QueryParameter(name)
	if valueString == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(valueString)
	if err != nil {
		return 0, errors.NotValidf("%s %q", name, valueString)
	}
	return value, nil
}

func ParseBool(request *restful.Request, name string, fallback bool) (bool, error) {
	valueString := request.QueryParameter(name)
	if valueString == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(valueString)
	if err != nil {
		return false, errors.NotValidf("%s %q", name, valueString)
	}
	return value, nil
}

type errorKind struct {
	status   int
	category string
	// public hides the message of server-side failures.
	public bool
}

// classify maps an error to its response. Order matters: errors carrying
// several kinds are reported by the first match.
func classify(err error) errorKind {
	switch {
	case errors.Is(err, logics.ErrModelNotReady):
		return errorKind{http.StatusBadRequest, "model_not_ready", true}
	case errors.Is(err, logics.ErrNoValidItems):
		return errorKind{http.StatusBadRequest, "no_valid_items", true}
	case errors.Is(err, logics.ErrBadCredentials):
		return errorKind{http.StatusUnauthorized, "bad_credentials", false}
	case errors.Is(err, logics.ErrTraining):
		return errorKind{http.StatusInternalServerError, "training_error", false}
	case errors.Is(err, logics.ErrRecommendation):
		return errorKind{http.StatusInternalServerError, "recommendation_error", false}
	case errors.Is(err, errors.NotValid):
		return errorKind{http.StatusBadRequest, "bad_request", true}
	case errors.Is(err, errors.AlreadyExists):
		return errorKind{http.StatusConflict, "duplicate_user", false}
	case errors.Is(err, errors.NotAssigned):
		return errorKind{http.StatusServiceUnavailable, "store_unavailable", false}
	case errors.Is(err, data.ErrStore):
		return errorKind{http.StatusInternalServerError, "store_error", false}
	case errors.Is(err, errors.NotFound):
		return errorKind{http.StatusNotFound, "not_found", true}
	default:
		return errorKind{http.StatusInternalServerError, "internal_error", false}
	}
}

var publicMessages = map[string]string{
	"bad_credentials":      "invalid username or password",
	"training_error":       "failed to train model",
	"recommendation_error": "failed to generate recommendations",
	"duplicate_user":       "user already exists",
	"store_unavailable":    "credential store is not configured",
	"store_error":          "credential store failure",
	"internal_error":       "internal server error",
}

// Error writes the response of an error and logs its details.
func Error(response *restful.Response, err error) {
	kind := classify(err)
	message := publicMessages[kind.category]
	if kind.public {
		message = err.Error()
	}
	logger := log.ResponseLogger(response)
	if kind.status >= http.StatusInternalServerError {
		logger.Error(kind.category, zap.Error(err), zap.String("stack", errors.ErrorStack(err)))
	} else {
		logger.Warn(kind.category, zap.Error(err))
	}
	writeError(response, kind.status, kind.category, message)
}

// BadRequest returns a bad request error.
func BadRequest(response *restful.Response, err error) {
	log.ResponseLogger(response).Warn("bad request", zap.Error(err))
	writeError(response, http.StatusBadRequest, "bad_request", err.Error())
}

func writeError(response *restful.Response, status int, category, message string) {
	ErrorTotal.WithLabelValues(category).Inc()
	if err := response.WriteHeaderAndJson(status, ErrorResponse{Error: message, Category: category}, restful.MIME_JSON); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// Ok sends the content as JSON to the client.
func Ok(response *restful.Response, content interface{}) {
	if err := response.WriteAsJson(content); err != nil {
		log.ResponseLogger(response).Error("failed to write json", zap.Error(err))
	}
}
