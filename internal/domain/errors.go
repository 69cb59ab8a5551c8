package domain

import "github.com/pkg/errors"

var (
	// ErrInvalidCandle candle violates OHLCV shape constraints.
	ErrInvalidCandle = errors.New("invalid candle")
	// ErrNonMonotonicSeries candle open times are not strictly increasing.
	ErrNonMonotonicSeries = errors.New("candle open times must be strictly increasing")
	// ErrEmptySeries no candles were supplied.
	ErrEmptySeries = errors.New("empty candle series")
	// ErrInsufficientHistory series is too short to derive an indicator snapshot.
	ErrInsufficientHistory = errors.New("insufficient candle history")
	// ErrDecisionIDRequired an outcome was submitted without the decision it closes.
	ErrDecisionIDRequired = errors.New("decision id is required")
	// ErrDecisionNotFound no journaled decision of the pair has the given id.
	ErrDecisionNotFound = errors.New("decision not found")
)
