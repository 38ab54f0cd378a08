// Copyright 2026 The Alloy Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package merge implements the numerical merge operators of the Alloy
// library: elementwise and region combinators, the TIES disjoint-merge
// engine with its model-stock and geometric-median variants, a stochastic
// dropout engine, a spectral (FFT-domain) crossover engine, and a
// neuron-space rotation merge.
//
// Every operator is a pure function over two or more same-shape tensors
// plus scalar hyperparameters, returning a new tensor of the same shape.
// Operators never mutate their inputs, but degenerate hyperparameters may
// short-circuit and return an input tensor unchanged.
//
// Merge spaces: a tensor argument is either a BASE tensor (absolute
// parameter values) or a DELTA tensor (difference of two BASE tensors).
// The declared spaces of each operator live in its registry descriptor
// (see Registry); the functions themselves trust the caller and perform
// no space checks.
//
// Numerical degeneracies (near-zero norms, acos domain overshoot, 0/0
// consensus ties) are recovered locally with documented fallbacks and are
// never surfaced as errors. Shape mismatches are undefined behavior and
// panic at the kernel level.
package merge
