package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/alloy-ml/alloy/internal/fft"
	"github.com/alloy-ml/alloy/merge"
)

type filterJSON struct {
	Shape         []int     `json:"shape"`
	SpectrumShape []int     `json:"spectrum_shape"`
	Alpha         float64   `json:"alpha"`
	Tilt          float64   `json:"tilt"`
	Values        []float64 `json:"values"`
}

func filterCmd() *cli.Command {
	var (
		shapeSpec string
		alpha     float64
		tilt      float64
	)

	return &cli.Command{
		Name:  "filter",
		Usage: "Dump the spectral crossover filter for a tensor shape",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "shape",
				Aliases:     []string{"s"},
				Usage:       "tensor shape, comma separated (e.g. 8,5)",
				Destination: &shapeSpec,
				Required:    true,
			},
			&cli.FloatFlag{Name: "alpha", Usage: "low/high frequency split in [0,1]", Value: 0.5, Destination: &alpha},
			&cli.FloatFlag{Name: "tilt", Usage: "tilt of the cut (period 4)", Destination: &tilt},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			_ = ctx

			shape, err := parseShape(shapeSpec)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			spectrum := fft.SpectrumShape(shape)
			values, err := merge.CreateFilter(spectrum, alpha, tilt)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(filterJSON{
				Shape:         shape,
				SpectrumShape: spectrum,
				Alpha:         alpha,
				Tilt:          tilt,
				Values:        values,
			})
		},
	}
}

func parseShape(spec string) ([]int, error) {
	parts := strings.Split(spec, ",")
	shape := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("invalid shape %q", spec)
		}
		shape = append(shape, v)
	}
	return shape, nil
}
