package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/alloy-ml/alloy/hyper"
	"github.com/alloy-ml/alloy/internal/logger"
	"github.com/alloy-ml/alloy/merge"
	"github.com/alloy-ml/alloy/tensor"
)

// tensorJSON is the on-disk form of one named tensor.
type tensorJSON struct {
	Shape  []int     `json:"shape"`
	Values []float64 `json:"values"`
}

type stateJSON map[string]tensorJSON

func applyCmd() *cli.Command {
	var (
		opName     string
		hypersPath string
		outPath    string
		logLevel   string
	)

	return &cli.Command{
		Name:      "apply",
		Usage:     "Apply a merge operator across tensor files key by key",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "op",
				Usage:       "operator name (see alloy ops)",
				Destination: &opName,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "hypers",
				Usage:       "YAML file of hyperparameter values, scalar or per key",
				Destination: &hypersPath,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output file (default stdout)",
				Destination: &outPath,
			},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error", Value: "info", Destination: &logLevel},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			_ = ctx
			log := logger.Text(os.Stderr, logger.ParseLevel(logLevel))

			paths := c.Args().Slice()
			if len(paths) == 0 {
				return cli.Exit("error: at least one tensor file is required", 1)
			}

			registry := merge.NewRegistry()
			desc, ok := registry.Get(opName)
			if !ok {
				return cli.Exit(fmt.Sprintf("error: unknown operator %q", opName), 1)
			}
			if len(paths) < desc.MinInputs() || (len(paths) > len(desc.Inputs) && !desc.Variadic()) {
				return cli.Exit(fmt.Sprintf("error: %s expects %d input file(s), got %d", opName, len(desc.Inputs), len(paths)), 1)
			}

			hypers := hyper.Set{}
			if hypersPath != "" {
				var err error
				hypers, err = hyper.LoadFile(hypersPath)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
			}

			states := make([]stateJSON, len(paths))
			for i, path := range paths {
				state, err := loadState(path)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				states[i] = state
				log.Debug("loaded tensor file", "path", path, "tensors", len(state))
			}

			cache := merge.NewMapCache()
			merged := stateJSON{}
			for key := range states[0] {
				inputs := make([]*tensor.RawTensor, len(states))
				skip := false
				for i, state := range states {
					entry, ok := state[key]
					if !ok {
						log.Warn("key missing from input, skipping", "key", key, "file", paths[i])
						skip = true
						break
					}
					t, err := tensor.FromSlice(entry.Values, tensor.Shape(entry.Shape))
					if err != nil {
						return cli.Exit(fmt.Sprintf("error: %s: %v", key, err), 1)
					}
					inputs[i] = t
				}
				if skip {
					continue
				}

				mctx := &merge.Context{Key: key, Cache: cache}
				out, err := registry.Execute(mctx, opName, inputs, hypers.Resolve(key))
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %s: %v", key, err), 1)
				}
				merged[key] = tensorJSON{
					Shape:  out.Shape(),
					Values: tensorValues(out),
				}
			}
			log.Info("merge complete", "op", opName, "tensors", len(merged))

			return writeState(outPath, merged)
		},
	}
}

func loadState(path string) (stateJSON, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var state stateJSON
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return state, nil
}

func writeState(path string, state stateJSON) error {
	out := os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(state)
}

func tensorValues(t *tensor.RawTensor) []float64 {
	switch t.DType() {
	case tensor.Float64:
		vals := make([]float64, t.NumElements())
		copy(vals, t.AsFloat64())
		return vals
	case tensor.Float32:
		src := t.AsFloat32()
		vals := make([]float64, len(src))
		for i, v := range src {
			vals[i] = float64(v)
		}
		return vals
	default:
		return nil
	}
}
