// Package generator holds the error generators that simulate data defects.
// A generator corrupts a sampled fraction of a column and always returns a
// new column; its input is never modified. All randomness comes from the
// *rand.Rand passed in, so a seeded source reproduces a run exactly.
package generator

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"

	"github.com/peekknuf/dqsweep/internal/dataset"
)

const (
	ExplicitMissingValues    = "explicit missing values"
	ImplicitMissingValues    = "implicit missing values"
	ExtraneousData           = "extraneous data"
	Duplicates               = "duplicates"
	ReplaceSpecialCharacters = "replace special characters"
	DeleteSpecialCharacters  = "delete special characters"
	Sort                     = "sort"
	LowerCase                = "lower case"
	ChangeDate               = "change date"
	ErroneousData            = "erroneous data"
)

var (
	ErrInvalidFraction  = errors.New("fraction must be within [0, 1]")
	ErrNilColumn        = errors.New("generator needs a column")
	ErrNoRandomSource   = errors.New("generator needs a random source")
	ErrUnknownGenerator = errors.New("unknown error generator")
	ErrDuplicateName    = errors.New("duplicate generator name")
)

// Generator corrupts a fraction of a column's rows.
type Generator interface {
	Name() string
	Corrupt(c *dataset.Column, fraction float64, rng *rand.Rand) (*dataset.Column, error)
}

// CorruptFunc returns the corrupted cells of c. It may modify neither c nor
// anything c references.
type CorruptFunc func(c *dataset.Column, fraction float64, rng *rand.Rand) []dataset.Value

type generatorFunc struct {
	name    string
	corrupt CorruptFunc
}

// New wraps fn as a Generator named name.
func New(name string, fn CorruptFunc) Generator {
	return &generatorFunc{name: name, corrupt: fn}
}

func (g *generatorFunc) Name() string {
	return g.name
}

func (g *generatorFunc) Corrupt(c *dataset.Column, fraction float64, rng *rand.Rand) (*dataset.Column, error) {
	switch {
	case c == nil:
		return nil, fmt.Errorf("%s: %w", g.name, ErrNilColumn)
	case rng == nil:
		return nil, fmt.Errorf("%s: %w", g.name, ErrNoRandomSource)
	case math.IsNaN(fraction) || fraction < 0 || fraction > 1:
		return nil, fmt.Errorf("%s: %w, got %v", g.name, ErrInvalidFraction, fraction)
	}

	return dataset.NewColumn(c.Name, g.corrupt(c, fraction, rng)), nil
}

// SampleSize is the number of rows a fraction of n selects, rounded half to even.
func SampleSize(n int, fraction float64) int {
	k := int(math.RoundToEven(fraction * float64(n)))
	if k > n {
		return n
	}
	return k
}

// sample picks SampleSize(n, fraction) distinct positions in random order.
func sample(n int, fraction float64, rng *rand.Rand) []int {
	k := SampleSize(n, fraction)
	if k == 0 {
		return nil
	}
	return rng.Perm(n)[:k]
}

// perRow builds a generator that rewrites each sampled cell with fn.
func perRow(fn func(c *dataset.Column, v dataset.Value, rng *rand.Rand) dataset.Value) CorruptFunc {
	return func(c *dataset.Column, fraction float64, rng *rand.Rand) []dataset.Value {
		values := c.Values()
		for _, i := range sample(len(values), fraction, rng) {
			values[i] = fn(c, values[i], rng)
		}
		return values
	}
}

// NewRand returns the random source for one corruption. The stream is
// derived from the coordinates of the corruption, so the result does not
// depend on the order in which corruptions run.
func NewRand(seed uint64, coords ...string) *rand.Rand {
	h := fnv.New64a()
	for _, c := range coords {
		h.Write([]byte(c))
		h.Write([]byte{0})
	}
	return rand.New(rand.NewPCG(seed, h.Sum64()))
}

// Registry is an ordered set of generators with lookup by name.
type Registry struct {
	generators []Generator
	byName     map[string]Generator
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Generator)}
}

// Register appends g. Names must be unique.
func (r *Registry) Register(g Generator) error {
	if _, ok := r.byName[g.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateName, g.Name())
	}
	r.byName[g.Name()] = g
	r.generators = append(r.generators, g)
	return nil
}

func (r *Registry) Lookup(name string) (Generator, bool) {
	g, ok := r.byName[name]
	return g, ok
}

func (r *Registry) All() []Generator {
	out := make([]Generator, len(r.generators))
	copy(out, r.generators)
	return out
}

func (r *Registry) Names() []string {
	out := make([]string, len(r.generators))
	for i, g := range r.generators {
		out[i] = g.Name()
	}
	return out
}

// Select returns the named generators in the order given, or all of them
// when names is empty.
func (r *Registry) Select(names []string) ([]Generator, error) {
	if len(names) == 0 {
		return r.All(), nil
	}

	out := make([]Generator, 0, len(names))
	for _, n := range names {
		g, ok := r.byName[n]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownGenerator, n)
		}
		out = append(out, g)
	}
	return out, nil
}

// Default returns a registry holding every built-in generator.
func Default() *Registry {
	r := NewRegistry()
	for _, g := range builtins() {
		if err := r.Register(g); err != nil {
			panic(err)
		}
	}
	return r
}

func builtins() []Generator {
	return []Generator{
		New(ExplicitMissingValues, perRow(explicitMissing)),
		New(ImplicitMissingValues, perRow(implicitMissing)),
		New(ExtraneousData, perRow(extraneous)),
		New(Duplicates, duplicates),
		New(ReplaceSpecialCharacters, perRow(replaceSpecial)),
		New(DeleteSpecialCharacters, perRow(deleteSpecial)),
		New(Sort, sortHead),
		New(LowerCase, perRow(lowerCase)),
		New(ChangeDate, perRow(changeDate)),
		New(ErroneousData, perRow(erroneous)),
	}
}
