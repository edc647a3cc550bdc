package dataprocessing

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

// Predicate decides whether a record is selected. Predicates are pure and
// safe to evaluate from many goroutines.
type Predicate func(domain.Record) bool

// All selects every record.
func All() Predicate {
	return func(domain.Record) bool { return true }
}

// None selects no record.
func None() Predicate {
	return func(domain.Record) bool { return false }
}

// And selects records matched by every predicate. And() selects all.
func And(preds ...Predicate) Predicate {
	return func(r domain.Record) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}
}

// Or selects records matched by any predicate. Or() selects none.
func Or(preds ...Predicate) Predicate {
	return func(r domain.Record) bool {
		for _, p := range preds {
			if p(r) {
				return true
			}
		}
		return false
	}
}

// Not inverts p.
func Not(p Predicate) Predicate {
	return func(r domain.Record) bool { return !p(r) }
}

// DateRangePredicate selects records whose month lies in r. Records with
// an unknown month never match.
func DateRangePredicate(r domain.DateRange) Predicate {
	return func(rec domain.Record) bool {
		return r.Contains(rec.Month)
	}
}

// MembershipPredicate selects records whose value for d is in allowed. An
// empty set matches nothing and a null value never matches.
func MembershipPredicate(d domain.Dimension, allowed domain.ValueSet) Predicate {
	if len(allowed) == 0 {
		return None()
	}
	return func(rec domain.Record) bool {
		v := rec.Value(d)
		return v != "" && allowed.Contains(v)
	}
}

// BuildMask turns a FilterSpec into a predicate: the record's month must
// lie in the range and, for each constrained dimension, its value must be
// allowed. Unconstrained dimensions are not checked.
func BuildMask(spec domain.FilterSpec) Predicate {
	preds := []Predicate{DateRangePredicate(spec.Range)}
	for _, d := range domain.Dimensions() {
		if allowed, ok := spec.Constraint(d); ok {
			preds = append(preds, MembershipPredicate(d, allowed))
		}
	}
	return And(preds...)
}

// Filter returns the records selected by pred in their original order.
// The input slice is not modified.
func Filter(records []domain.Record, pred Predicate) []domain.Record {
	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// FilterParallel evaluates pred over chunks of records on up to workers
// goroutines and returns the selection in the original order. workers <= 0
// uses GOMAXPROCS. ctx is checked before each chunk.
func FilterParallel(ctx context.Context, records []domain.Record, pred Predicate, workers int) ([]domain.Record, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers == 1 || len(records) < workers*2 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return Filter(records, pred), nil
	}

	chunk := (len(records) + workers - 1) / workers
	parts := make([][]domain.Record, workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		start := w * chunk
		if start >= len(records) {
			break
		}
		end := start + chunk
		if end > len(records) {
			end = len(records)
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parts[w] = Filter(records[start:end], pred)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]domain.Record, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, nil
}
