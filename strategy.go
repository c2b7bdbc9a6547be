package nowplaying_dl

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/alanbriolat/nowplaying-dl/generic"
)

var (
	ErrDuplicateStrategy = errors.New("duplicate strategy name")
	ErrInvalidStrategy   = errors.New("invalid strategy")
	ErrNoStrategies      = errors.New("no strategies registered")
)

var (
	PriorityHighest int16 = math.MinInt16
	PriorityDefault int16 = 0
	PriorityLowest  int16 = math.MaxInt16
)

// StrategyFunc attempts to produce an Out from an In; any non-nil error means the attempt failed.
type StrategyFunc[In any, Out any] func(context.Context, In) (Out, error)

// A Strategy is one named way of producing a result.
type Strategy[In any, Out any] struct {
	Name string
	Run  StrategyFunc[In, Out]
	// Priority of the strategy, lower (including negative) means trying earlier.
	Priority int16
}

// An Attempt is the result of the first Strategy that succeeded.
type Attempt[Out any] struct {
	StrategyName string
	Value        Out
}

// StrategyError reports that every strategy failed; Errors holds each failure in the order they were tried.
type StrategyError struct {
	Errors *multierror.Error
}

func (e *StrategyError) Error() string {
	if e.Errors == nil {
		return ErrNoStrategies.Error()
	}
	return e.Errors.Error()
}

// Last returns the error of the last strategy tried.
func (e *StrategyError) Last() error {
	if e.Errors == nil || len(e.Errors.Errors) == 0 {
		return ErrNoStrategies
	}
	return e.Errors.Errors[len(e.Errors.Errors)-1]
}

func (e *StrategyError) Unwrap() []error {
	if e.Errors == nil {
		return []error{ErrNoStrategies}
	}
	return e.Errors.Errors
}

// A StrategyList is a ranked collection of strategies, tried in priority order until one succeeds. Strategies with
// equal priority keep their registration order.
type StrategyList[In any, Out any] struct {
	strategies  []*Strategy[In, Out]
	strategyMap map[string]*Strategy[In, Out]
}

// Add registers a Strategy. Strategy.Name and Strategy.Run must be set, and Strategy.Name must be unique.
func (l *StrategyList[In, Out]) Add(s Strategy[In, Out]) error {
	if l.strategyMap == nil {
		l.strategyMap = make(map[string]*Strategy[In, Out])
	}
	if s.Name == "" || s.Run == nil {
		return ErrInvalidStrategy
	}
	if _, ok := l.strategyMap[s.Name]; ok {
		return ErrDuplicateStrategy
	}
	l.strategyMap[s.Name] = &s
	l.strategies = append(l.strategies, l.strategyMap[s.Name])
	l.sortByPriority()
	return nil
}

// CreatePriority is a shortcut for Add(Strategy{Name: ..., Run: ..., Priority: ...}).
func (l *StrategyList[In, Out]) CreatePriority(name string, f StrategyFunc[In, Out], priority int16) error {
	return l.Add(Strategy[In, Out]{
		Name:     name,
		Run:      f,
		Priority: priority,
	})
}

// MustCreatePriority wraps CreatePriority but panics if there is an error.
func (l *StrategyList[In, Out]) MustCreatePriority(name string, f StrategyFunc[In, Out], priority int16) {
	generic.Unwrap_(l.CreatePriority(name, f, priority))
}

// List returns the names of registered strategies in priority order.
func (l *StrategyList[In, Out]) List() []string {
	names := make([]string, 0, len(l.strategies))
	for _, s := range l.strategies {
		names = append(names, s.Name)
	}
	return names
}

// Run tries each Strategy in priority order and returns the first success. A later strategy is never tried once an
// earlier one has succeeded. If every strategy fails, the error is a *StrategyError. A cancelled context stops the
// run between strategies.
func (l *StrategyList[In, Out]) Run(ctx context.Context, in In) (*Attempt[Out], error) {
	if len(l.strategies) == 0 {
		return nil, &StrategyError{}
	}
	var result *multierror.Error
	for _, s := range l.strategies {
		if err := ctx.Err(); err != nil {
			result = multierror.Append(result, err)
			break
		}
		out, err := s.Run(ctx, in)
		if err == nil {
			return &Attempt[Out]{StrategyName: s.Name, Value: out}, nil
		}
		result = multierror.Append(result, fmt.Errorf("[%s] %w", s.Name, err))
	}
	return nil, &StrategyError{Errors: result}
}

func (l *StrategyList[In, Out]) sortByPriority() {
	sort.SliceStable(l.strategies, func(i, j int) bool {
		return l.strategies[i].Priority < l.strategies[j].Priority
	})
}

// Observed wraps f so that observe is called with the name and error of every run.
func Observed[In any, Out any](name string, f StrategyFunc[In, Out], observe func(name string, err error)) StrategyFunc[In, Out] {
	if observe == nil {
		return f
	}
	return func(ctx context.Context, in In) (Out, error) {
		out, err := f(ctx, in)
		observe(name, err)
		return out, err
	}
}
