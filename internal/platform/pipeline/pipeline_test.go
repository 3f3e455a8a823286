// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pipeline_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/trailhead/internal/platform/apperr"
	"github.com/taibuivan/trailhead/internal/platform/ctxutil"
	"github.com/taibuivan/trailhead/internal/platform/pipeline"
	"github.com/taibuivan/trailhead/internal/platform/sec"
)

// recorder collects the errors routed to the terminal handler.
type recorder struct {
	errs []error
}

func (r *recorder) handle(exchange *pipeline.Exchange, err error) {
	r.errs = append(r.errs, err)
	status := http.StatusInternalServerError
	if appErr := apperr.As(err); appErr != nil {
		status = appErr.HTTPStatus
	}
	exchange.Writer.WriteHeader(status)
}

func step(trace *[]string, name string, flow pipeline.Flow) pipeline.Stage {
	return func(exchange *pipeline.Exchange) (pipeline.Flow, error) {
		*trace = append(*trace, name)
		return flow, nil
	}
}

func serve(chain *pipeline.Chain) *httptest.ResponseRecorder {
	response := httptest.NewRecorder()
	chain.ServeHTTP(response, httptest.NewRequest(http.MethodGet, "/tours?price=5", nil))
	return response
}

/*
TestChain_Order verifies stages run in order and Halt stops the chain.
*/
func TestChain_Order(t *testing.T) {
	var trace []string
	errs := &recorder{}

	chain := pipeline.New(errs.handle,
		step(&trace, "headers", pipeline.Next),
		step(&trace, "limit", pipeline.Next),
		pipeline.Terminal(func(exchange *pipeline.Exchange) error {
			trace = append(trace, "handler")
			exchange.Writer.WriteHeader(http.StatusOK)
			return nil
		}),
		step(&trace, "unreachable", pipeline.Next),
	)

	response := serve(chain)
	assert.Equal(t, http.StatusOK, response.Code)
	assert.Equal(t, []string{"headers", "limit", "handler"}, trace)
	assert.Empty(t, errs.errs)
}

/*
TestChain_ErrorHandledOnce verifies the first failure reaches the handler exactly once.
*/
func TestChain_ErrorHandledOnce(t *testing.T) {
	var trace []string
	errs := &recorder{}

	chain := pipeline.New(errs.handle,
		step(&trace, "first", pipeline.Next),
		func(exchange *pipeline.Exchange) (pipeline.Flow, error) {
			return pipeline.Next, apperr.Forbidden("no")
		},
		step(&trace, "after", pipeline.Next),
	)

	response := serve(chain)
	assert.Equal(t, http.StatusForbidden, response.Code)
	assert.Equal(t, []string{"first"}, trace)
	require.Len(t, errs.errs, 1)
}

/*
TestChain_Exhausted reports a chain without a responder as an internal error.
*/
func TestChain_Exhausted(t *testing.T) {
	errs := &recorder{}
	var trace []string

	response := serve(pipeline.New(errs.handle, step(&trace, "only", pipeline.Next)))
	assert.Equal(t, http.StatusInternalServerError, response.Code)
	require.Len(t, errs.errs, 1)
	assert.True(t, errors.Is(errs.errs[0], pipeline.ErrExhausted))
}

/*
TestChain_Panic converts a stage panic into an internal error.
*/
func TestChain_Panic(t *testing.T) {
	errs := &recorder{}

	response := serve(pipeline.New(errs.handle, func(exchange *pipeline.Exchange) (pipeline.Flow, error) {
		panic("boom")
	}))
	assert.Equal(t, http.StatusInternalServerError, response.Code)
	require.Len(t, errs.errs, 1)
	assert.Equal(t, apperr.CodeInternal, apperr.As(errs.errs[0]).Code)
}

/*
TestChain_ErrorAfterResponse never writes twice.
*/
func TestChain_ErrorAfterResponse(t *testing.T) {
	errs := &recorder{}

	response := serve(pipeline.New(errs.handle, func(exchange *pipeline.Exchange) (pipeline.Flow, error) {
		exchange.Writer.WriteHeader(http.StatusAccepted)
		return pipeline.Halt, errors.New("late failure")
	}))
	assert.Equal(t, http.StatusAccepted, response.Code)
	assert.Empty(t, errs.errs)
}

/*
TestChain_With leaves the base chain untouched.
*/
func TestChain_With(t *testing.T) {
	var trace []string
	errs := &recorder{}

	base := pipeline.New(errs.handle, step(&trace, "base", pipeline.Next))
	extended := base.With(pipeline.Terminal(func(exchange *pipeline.Exchange) error {
		trace = append(trace, "route")
		exchange.Writer.WriteHeader(http.StatusNoContent)
		return nil
	}))

	assert.Equal(t, 1, base.Len())
	assert.Equal(t, 2, extended.Len())

	response := serve(extended)
	assert.Equal(t, http.StatusNoContent, response.Code)
	assert.Equal(t, []string{"base", "route"}, trace)
}

/*
TestExchange_State covers the mutable per-request context.
*/
func TestExchange_State(t *testing.T) {
	errs := &recorder{}

	chain := pipeline.New(errs.handle,
		func(exchange *pipeline.Exchange) (pipeline.Flow, error) {
			exchange.Query.Set("limit", "5")
			exchange.Set("alias", "top-5")
			exchange.Authenticate(&sec.Principal{ID: "u1", Role: sec.RoleUser})
			return pipeline.Next, nil
		},
		pipeline.Terminal(func(exchange *pipeline.Exchange) error {
			alias, ok := exchange.Get("alias")
			assert.True(t, ok)
			assert.Equal(t, "top-5", alias)
			assert.Equal(t, "5", exchange.Query.Get("limit"))
			assert.Equal(t, "5", exchange.Query.Get("price"))
			assert.Equal(t, "u1", ctxutil.GetPrincipal(exchange.Context()).ID)
			assert.False(t, exchange.RequestTime.IsZero())
			exchange.Writer.WriteHeader(http.StatusOK)
			return nil
		}),
	)

	response := serve(chain)
	assert.Equal(t, http.StatusOK, response.Code)
	assert.Empty(t, errs.errs)
}
