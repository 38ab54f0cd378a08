// Copyright 2026 The Alloy Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package merge

import (
	"fmt"
	"math"
	"sort"

	"github.com/alloy-ml/alloy/tensor"
)

// Hypers carries the named scalar hyperparameters of one operator call.
type Hypers map[string]float64

// Get returns the hyperparameter value, or def when absent.
func (h Hypers) Get(name string, def float64) float64 {
	if v, ok := h[name]; ok {
		return v
	}
	return def
}

// Context carries per-call execution state that is not a tensor or a
// hyperparameter: the cache key of the parameter being merged and the
// shared rotation cache and solver.
type Context struct {
	Key    string
	Cache  Cache
	Solver Solver
}

// OpFunc executes one registered operator.
type OpFunc func(ctx *Context, inputs []*tensor.RawTensor, hypers Hypers) (*tensor.RawTensor, error)

// InputSpec declares one tensor argument of an operator. A variadic input
// must be last and absorbs all remaining arguments.
type InputSpec struct {
	Name     string
	Space    Space
	Variadic bool
}

// HyperSpec declares one scalar hyperparameter. Required hypers have no
// default and must be supplied by the caller.
type HyperSpec struct {
	Name     string
	Default  float64
	Required bool
}

// Descriptor is the registration record of one operator: its argument
// contract and the adapter closure invoking the implementation.
type Descriptor struct {
	Name   string
	Inputs []InputSpec
	Hypers []HyperSpec
	Output Space
	Fn     OpFunc
}

// MinInputs returns the minimum number of tensor arguments.
func (d *Descriptor) MinInputs() int {
	n := len(d.Inputs)
	if n > 0 && d.Inputs[n-1].Variadic {
		n--
	}
	return n
}

// Variadic reports whether the operator accepts extra trailing tensors.
func (d *Descriptor) Variadic() bool {
	n := len(d.Inputs)
	return n > 0 && d.Inputs[n-1].Variadic
}

// ResolveSpaces validates the actual argument spaces against the
// declaration and returns the output space. Same-declared arguments must
// unify; a Same output takes the unified space.
func (d *Descriptor) ResolveSpaces(actuals []Space) (Space, error) {
	if len(actuals) < d.MinInputs() || (len(actuals) > len(d.Inputs) && !d.Variadic()) {
		return 0, fmt.Errorf("%s: expected %d input(s), got %d", d.Name, len(d.Inputs), len(actuals))
	}
	var sames []Space
	for i, actual := range actuals {
		decl := d.Inputs[min(i, len(d.Inputs)-1)]
		if !decl.Space.Accepts(actual) {
			return 0, fmt.Errorf("%s: input %q expects %s space, got %s", d.Name, decl.Name, decl.Space, actual)
		}
		if decl.Space == Same {
			sames = append(sames, actual)
		}
	}
	if d.Output != Same {
		return d.Output, nil
	}
	return unifySame(sames)
}

// Registry maps operator names to descriptors. The zero value is not
// usable; NewRegistry returns one preloaded with every built-in operator.
type Registry struct {
	ops map[string]*Descriptor
}

// NewRegistry returns a registry holding all built-in merge operators.
func NewRegistry() *Registry {
	r := &Registry{ops: make(map[string]*Descriptor)}
	for _, d := range builtins() {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a descriptor, rejecting duplicates and malformed records.
func (r *Registry) Register(d *Descriptor) error {
	if d.Name == "" || d.Fn == nil {
		return fmt.Errorf("registry: descriptor requires a name and a function")
	}
	if _, exists := r.ops[d.Name]; exists {
		return fmt.Errorf("registry: operator %q already registered", d.Name)
	}
	for i, in := range d.Inputs {
		if in.Variadic && i != len(d.Inputs)-1 {
			return fmt.Errorf("registry: %s: variadic input %q must be last", d.Name, in.Name)
		}
	}
	r.ops[d.Name] = d
	return nil
}

// Get returns the descriptor for name.
func (r *Registry) Get(name string) (*Descriptor, bool) {
	d, ok := r.ops[name]
	return d, ok
}

// Names returns all registered operator names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs a registered operator: the input count is validated,
// hyperparameter defaults are filled in, required hypers are checked, and
// the adapter is invoked. A nil ctx executes with no key, cache or custom
// solver.
func (r *Registry) Execute(ctx *Context, name string, inputs []*tensor.RawTensor, hypers Hypers) (*tensor.RawTensor, error) {
	d, ok := r.ops[name]
	if !ok {
		return nil, fmt.Errorf("registry: unknown operator %q", name)
	}
	if len(inputs) < d.MinInputs() || (len(inputs) > len(d.Inputs) && !d.Variadic()) {
		return nil, fmt.Errorf("%s: expected %d input(s), got %d", name, len(d.Inputs), len(inputs))
	}

	resolved := make(Hypers, len(d.Hypers))
	for _, h := range d.Hypers {
		if v, ok := hypers[h.Name]; ok {
			resolved[h.Name] = v
		} else if h.Required {
			return nil, fmt.Errorf("%s: hyperparameter %q is required", name, h.Name)
		} else {
			resolved[h.Name] = h.Default
		}
	}
	for supplied := range hypers {
		if _, ok := resolved[supplied]; !ok {
			return nil, fmt.Errorf("%s: unknown hyperparameter %q", d.Name, supplied)
		}
	}

	if ctx == nil {
		ctx = &Context{}
	}
	return d.Fn(ctx, inputs, resolved)
}

// asBool interprets a numeric toggle hyperparameter.
func asBool(v float64) bool { return v > 0 }

// builtins returns the descriptors of every operator in this package.
func builtins() []*Descriptor {
	same2 := []InputSpec{{Name: "a", Space: Same}, {Name: "b", Space: Same}}
	same3 := []InputSpec{{Name: "a", Space: Same}, {Name: "b", Space: Same}, {Name: "c", Space: Same}}
	delta2 := []InputSpec{{Name: "a", Space: Delta}, {Name: "b", Space: Delta}}
	base2 := []InputSpec{{Name: "a", Space: Base}, {Name: "b", Space: Base}}
	deltasVariadic := []InputSpec{{Name: "deltas", Space: Delta, Variadic: true}}

	alpha := func(def float64) []HyperSpec { return []HyperSpec{{Name: "alpha", Default: def}} }
	tiesHypers := []HyperSpec{
		{Name: "k", Default: 0.2},
		{Name: "vote_sgn"},
	}
	tiesExtendedHypers := append(tiesHypers[:len(tiesHypers):len(tiesHypers)],
		HyperSpec{Name: "apply_stock"},
		HyperSpec{Name: "cos_eps", Default: 1e-6},
		HyperSpec{Name: "apply_median"},
		HyperSpec{Name: "eps", Default: 1e-6},
		HyperSpec{Name: "maxiter", Default: 100},
		HyperSpec{Name: "ftol", Default: 1e-20},
	)
	tiesOptions := func(h Hypers) TiesOptions {
		return TiesOptions{
			K:           h.Get("k", 0.2),
			VoteSgn:     asBool(h.Get("vote_sgn", 0)),
			ApplyStock:  asBool(h.Get("apply_stock", 0)),
			CosEps:      h.Get("cos_eps", 1e-6),
			ApplyMedian: asBool(h.Get("apply_median", 0)),
			Eps:         h.Get("eps", 1e-6),
			MaxIter:     int(math.Round(h.Get("maxiter", 100))),
			FTol:        h.Get("ftol", 1e-20),
		}
	}

	return []*Descriptor{
		{
			Name: "weighted_sum", Inputs: same2, Hypers: alpha(0.5), Output: Same,
			Fn: func(_ *Context, in []*tensor.RawTensor, h Hypers) (*tensor.RawTensor, error) {
				return WeightedSum(in[0], in[1], h.Get("alpha", 0.5))
			},
		},
		{
			Name: "n_average", Inputs: []InputSpec{{Name: "models", Space: Same, Variadic: true}}, Output: Same,
			Fn: func(_ *Context, in []*tensor.RawTensor, _ Hypers) (*tensor.RawTensor, error) {
				return NAverage(in)
			},
		},
		{
			Name: "slerp", Inputs: same2, Hypers: alpha(0.5), Output: Same,
			Fn: func(_ *Context, in []*tensor.RawTensor, h Hypers) (*tensor.RawTensor, error) {
				return Slerp(in[0], in[1], h.Get("alpha", 0.5))
			},
		},
		{
			Name: "add_difference",
			Inputs: []InputSpec{{Name: "a", Space: Same}, {Name: "b", Space: Delta}},
			Hypers: alpha(1), Output: Same,
			Fn: func(_ *Context, in []*tensor.RawTensor, h Hypers) (*tensor.RawTensor, error) {
				return AddDifference(in[0], in[1], h.Get("alpha", 1))
			},
		},
		{
			Name: "subtract", Inputs: base2, Output: Delta,
			Fn: func(_ *Context, in []*tensor.RawTensor, _ Hypers) (*tensor.RawTensor, error) {
				return Subtract(in[0], in[1])
			},
		},
		{
			Name: "perpendicular_component", Inputs: same2, Output: Same,
			Fn: func(_ *Context, in []*tensor.RawTensor, _ Hypers) (*tensor.RawTensor, error) {
				return PerpendicularComponent(in[0], in[1])
			},
		},
		{
			Name: "geometric_sum", Inputs: delta2, Hypers: alpha(0.5), Output: Delta,
			Fn: func(_ *Context, in []*tensor.RawTensor, h Hypers) (*tensor.RawTensor, error) {
				return GeometricSum(in[0], in[1], h.Get("alpha", 0.5))
			},
		},
		{
			Name: "add_cosine_a", Inputs: base2,
			Hypers: []HyperSpec{{Name: "alpha", Required: true}}, Output: Base,
			Fn: func(_ *Context, in []*tensor.RawTensor, h Hypers) (*tensor.RawTensor, error) {
				return AddCosineA(in[0], in[1], h.Get("alpha", 0))
			},
		},
		{
			Name: "add_cosine_b", Inputs: base2,
			Hypers: []HyperSpec{{Name: "alpha", Required: true}}, Output: Base,
			Fn: func(_ *Context, in []*tensor.RawTensor, h Hypers) (*tensor.RawTensor, error) {
				return AddCosineB(in[0], in[1], h.Get("alpha", 0))
			},
		},
		{
			Name: "ties_sum", Inputs: deltasVariadic, Hypers: tiesHypers, Output: Delta,
			Fn: func(_ *Context, in []*tensor.RawTensor, h Hypers) (*tensor.RawTensor, error) {
				return TiesSum(in, h.Get("k", 0.2), asBool(h.Get("vote_sgn", 0)))
			},
		},
		{
			Name: "ties_sum_extended", Inputs: deltasVariadic, Hypers: tiesExtendedHypers, Output: Delta,
			Fn: func(_ *Context, in []*tensor.RawTensor, h Hypers) (*tensor.RawTensor, error) {
				return TiesSumExtended(in, tiesOptions(h))
			},
		},
		{
			Name: "tensor_sum", Inputs: same2,
			Hypers: []HyperSpec{{Name: "width", Default: 0.5}, {Name: "offset"}}, Output: Same,
			Fn: func(_ *Context, in []*tensor.RawTensor, h Hypers) (*tensor.RawTensor, error) {
				return TensorSum(in[0], in[1], h.Get("width", 0.5), h.Get("offset", 0))
			},
		},
		{
			Name: "top_k_tensor_sum", Inputs: same2,
			Hypers: []HyperSpec{{Name: "width", Default: 0.5}, {Name: "offset"}}, Output: Same,
			Fn: func(_ *Context, in []*tensor.RawTensor, h Hypers) (*tensor.RawTensor, error) {
				return TopKTensorSum(in[0], in[1], h.Get("width", 0.5), h.Get("offset", 0))
			},
		},
		{
			Name: "train_difference", Inputs: same3, Hypers: alpha(1), Output: Same,
			Fn: func(_ *Context, in []*tensor.RawTensor, h Hypers) (*tensor.RawTensor, error) {
				return TrainDifference(in[0], in[1], in[2], h.Get("alpha", 1))
			},
		},
		{
			Name: "add_opposite", Inputs: same3, Hypers: alpha(1), Output: Same,
			Fn: func(_ *Context, in []*tensor.RawTensor, h Hypers) (*tensor.RawTensor, error) {
				return AddOpposite(in[0], in[1], in[2], h.Get("alpha", 1))
			},
		},
		{
			Name: "clamped_add_opposite", Inputs: same3, Hypers: alpha(1), Output: Same,
			Fn: func(_ *Context, in []*tensor.RawTensor, h Hypers) (*tensor.RawTensor, error) {
				return ClampedAddOpposite(in[0], in[1], in[2], h.Get("alpha", 1))
			},
		},
		{
			Name: "select_max_delta", Inputs: delta2, Hypers: alpha(0.5), Output: Delta,
			Fn: func(_ *Context, in []*tensor.RawTensor, h Hypers) (*tensor.RawTensor, error) {
				return SelectMaxDelta(in[0], in[1], h.Get("alpha", 0.5))
			},
		},
		{
			Name: "multiply_quotient", Inputs: same3, Hypers: alpha(1), Output: Same,
			Fn: func(_ *Context, in []*tensor.RawTensor, h Hypers) (*tensor.RawTensor, error) {
				return MultiplyQuotient(in[0], in[1], in[2], h.Get("alpha", 1))
			},
		},
		{
			Name: "crossover", Inputs: same2,
			Hypers: []HyperSpec{{Name: "alpha", Default: 0.5}, {Name: "tilt"}}, Output: Same,
			Fn: func(_ *Context, in []*tensor.RawTensor, h Hypers) (*tensor.RawTensor, error) {
				return Crossover(in[0], in[1], h.Get("alpha", 0.5), h.Get("tilt", 0))
			},
		},
		{
			Name: "distribution_crossover", Inputs: same3,
			Hypers: []HyperSpec{{Name: "alpha", Required: true}, {Name: "tilt", Required: true}}, Output: Same,
			Fn: func(_ *Context, in []*tensor.RawTensor, h Hypers) (*tensor.RawTensor, error) {
				return DistributionCrossover(in[0], in[1], in[2], h.Get("alpha", 0), h.Get("tilt", 0))
			},
		},
		{
			Name: "rotate", Inputs: same2,
			Hypers: []HyperSpec{{Name: "alignment", Default: 1}, {Name: "alpha"}}, Output: Same,
			Fn: func(ctx *Context, in []*tensor.RawTensor, h Hypers) (*tensor.RawTensor, error) {
				return Rotate(in[0], in[1], RotateOptions{
					Alignment: h.Get("alignment", 1),
					Alpha:     h.Get("alpha", 0),
					Key:       ctx.Key,
					Cache:     ctx.Cache,
					Solver:    ctx.Solver,
				})
			},
		},
		{
			Name:   "clamp",
			Inputs: []InputSpec{{Name: "a", Space: Same}, {Name: "bounds", Space: Same, Variadic: true}},
			Hypers: []HyperSpec{{Name: "stiffness"}}, Output: Same,
			Fn: func(_ *Context, in []*tensor.RawTensor, h Hypers) (*tensor.RawTensor, error) {
				return Clamp(in[0], in[1:], h.Get("stiffness", 0))
			},
		},
		{
			Name: "dropout", Inputs: deltasVariadic,
			Hypers: []HyperSpec{
				{Name: "probability", Default: 0.9},
				{Name: "rescale", Default: 1},
				{Name: "overlap", Default: 1},
				{Name: "overlap_emphasis"},
				{Name: "seed", Default: -1},
			},
			Output: Delta,
			Fn: func(_ *Context, in []*tensor.RawTensor, h Hypers) (*tensor.RawTensor, error) {
				return Dropout(in, DropoutOptions{
					Probability:     h.Get("probability", 0.9),
					Rescale:         h.Get("rescale", 1),
					Overlap:         h.Get("overlap", 1),
					OverlapEmphasis: h.Get("overlap_emphasis", 0),
					Seed:            int64(math.Round(h.Get("seed", -1))),
				})
			},
		},
		{
			Name: "ties_sum_with_dropout", Inputs: deltasVariadic,
			Hypers: append([]HyperSpec{
				{Name: "probability", Default: 0.9},
				{Name: "rescale", Default: 1},
				{Name: "seed", Default: -1},
			}, tiesExtendedHypers...),
			Output: Delta,
			Fn: func(_ *Context, in []*tensor.RawTensor, h Hypers) (*tensor.RawTensor, error) {
				return TiesSumWithDropout(in, TiesDropoutOptions{
					Probability: h.Get("probability", 0.9),
					Rescale:     h.Get("rescale", 1),
					Ties:        tiesOptions(h),
					Seed:        int64(math.Round(h.Get("seed", -1))),
				})
			},
		},
		{
			Name: "model_stock", Inputs: deltasVariadic,
			Hypers: []HyperSpec{{Name: "cos_eps", Default: 1e-6}}, Output: Delta,
			Fn: func(_ *Context, in []*tensor.RawTensor, h Hypers) (*tensor.RawTensor, error) {
				return ModelStock(in, h.Get("cos_eps", 1e-6))
			},
		},
		{
			Name:   "geometric_median",
			Inputs: []InputSpec{{Name: "models", Space: Same, Variadic: true}},
			Hypers: []HyperSpec{
				{Name: "eps", Default: 1e-6},
				{Name: "maxiter", Default: 100},
				{Name: "ftol", Default: 1e-20},
			},
			Output: Same,
			Fn: func(_ *Context, in []*tensor.RawTensor, h Hypers) (*tensor.RawTensor, error) {
				return GeometricMedian(in, MedianOptions{
					Eps:     h.Get("eps", 1e-6),
					MaxIter: int(math.Round(h.Get("maxiter", 100))),
					FTol:    h.Get("ftol", 1e-20),
				})
			},
		},
	}
}
