package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/alloy-ml/alloy/merge"
)

type opInputJSON struct {
	Name     string `json:"name"`
	Space    string `json:"space"`
	Variadic bool   `json:"variadic,omitempty"`
}

type opHyperJSON struct {
	Name     string  `json:"name"`
	Default  float64 `json:"default"`
	Required bool    `json:"required,omitempty"`
}

type opJSON struct {
	Name   string        `json:"name"`
	Inputs []opInputJSON `json:"inputs"`
	Hypers []opHyperJSON `json:"hypers,omitempty"`
	Output string        `json:"output"`
}

func opsCmd() *cli.Command {
	var name string

	return &cli.Command{
		Name:  "ops",
		Usage: "List registered merge operators as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "name",
				Aliases:     []string{"n"},
				Usage:       "show a single operator",
				Destination: &name,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			_ = ctx

			registry := merge.NewRegistry()
			names := registry.Names()
			if name != "" {
				if _, ok := registry.Get(name); !ok {
					return cli.Exit(fmt.Sprintf("error: unknown operator %q", name), 1)
				}
				names = []string{name}
			}

			out := make([]opJSON, 0, len(names))
			for _, n := range names {
				d, _ := registry.Get(n)
				op := opJSON{Name: d.Name, Output: d.Output.String()}
				for _, in := range d.Inputs {
					op.Inputs = append(op.Inputs, opInputJSON{
						Name:     in.Name,
						Space:    in.Space.String(),
						Variadic: in.Variadic,
					})
				}
				for _, h := range d.Hypers {
					op.Hypers = append(op.Hypers, opHyperJSON{
						Name:     h.Name,
						Default:  h.Default,
						Required: h.Required,
					})
				}
				out = append(out, op)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}
