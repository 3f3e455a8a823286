// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package pipeline runs requests through an ordered chain of stages.

Every stage receives the same [Exchange] and returns one of three outcomes:

  - [Next]: continue with the following stage
  - [Halt]: a response was written; stop without error
  - a non-nil error: stop and hand the error to the chain's [ErrorHandler]

The error handler is the single place where failures become responses. It runs
at most once per request. A panic inside a stage is converted to an internal
error and routed to the same handler. A chain that runs out of stages without
halting is a programming error and is reported the same way.
*/
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"

	"github.com/taibuivan/trailhead/internal/platform/apperr"
)

// Flow tells the chain what to do after a stage returns without error.
type Flow int

const (
	// Next continues with the following stage.
	Next Flow = iota
	// Halt stops the chain; the stage has written the response.
	Halt
)

// ErrExhausted is reported when every stage returned [Next].
var ErrExhausted = errors.New("pipeline: chain completed without a response")

// Stage is one step of request processing.
type Stage func(exchange *Exchange) (Flow, error)

// ErrorHandler renders a failed request.
type ErrorHandler func(exchange *Exchange, err error)

// Chain is an immutable, ordered list of stages with one terminal error handler.
type Chain struct {
	stages  []Stage
	onError ErrorHandler
}

// New creates a chain.
func New(onError ErrorHandler, stages ...Stage) *Chain {
	return &Chain{stages: stages, onError: onError}
}

// With returns a new chain that runs the receiver's stages followed by stages.
// The receiver is not modified, so a shared base chain can be extended per route.
func (chain *Chain) With(stages ...Stage) *Chain {
	combined := make([]Stage, 0, len(chain.stages)+len(stages))
	combined = append(combined, chain.stages...)
	combined = append(combined, stages...)
	return &Chain{stages: combined, onError: chain.onError}
}

// Len returns the number of stages.
func (chain *Chain) Len() int {
	return len(chain.stages)
}

// ServeHTTP implements [http.Handler].
func (chain *Chain) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	chain.Run(NewExchange(writer, request))
}

// Run executes the stages against exchange.
func (chain *Chain) Run(exchange *Exchange) {
	defer func() {
		if recovered := recover(); recovered != nil {
			stackTrace := make([]byte, 2048)
			length := runtime.Stack(stackTrace, false)
			exchange.Logger().ErrorContext(exchange.Context(), "pipeline_stage_panic",
				slog.Any("error", recovered),
				slog.String("stack", string(stackTrace[:length])),
			)
			chain.fail(exchange, apperr.Internal(fmt.Errorf("pipeline: panic: %v", recovered)))
		}
	}()

	for _, stage := range chain.stages {
		flow, err := stage(exchange)
		if err != nil {
			chain.fail(exchange, err)
			return
		}
		if flow == Halt {
			return
		}
	}

	chain.fail(exchange, apperr.Internal(ErrExhausted))
}

// fail routes err to the terminal handler unless a response is already on the wire.
func (chain *Chain) fail(exchange *Exchange, err error) {
	if exchange.Responded() {
		exchange.Logger().ErrorContext(exchange.Context(), "pipeline_error_after_response",
			slog.Any("error", err),
		)
		return
	}
	chain.onError(exchange, err)
}

// # Stage Adapters

// Terminal adapts a response-writing function into a stage that always halts.
func Terminal(handle func(exchange *Exchange) error) Stage {
	return func(exchange *Exchange) (Flow, error) {
		if err := handle(exchange); err != nil {
			return Halt, err
		}
		return Halt, nil
	}
}

// Guard adapts a check into a stage that continues when the check passes.
func Guard(check func(exchange *Exchange) error) Stage {
	return func(exchange *Exchange) (Flow, error) {
		if err := check(exchange); err != nil {
			return Halt, err
		}
		return Next, nil
	}
}
