// Package simulate implements the what-if panel: purely presentational
// linear offsets on top of an existing risk probability. No model call is
// involved; the numbers are coarse on purpose.
package simulate

import (
	"fmt"
	"strconv"

	"alive/internal/predict"
)

// Input is the hypothetical the user is toying with.
type Input struct {
	Age    int
	Smoke  bool
	Active bool
}

// FromResult seeds the simulation with the patient's actual values.
func FromResult(res predict.Result) Input {
	return Input{Age: res.Age, Smoke: res.Smokes(), Active: res.IsActive()}
}

// FromArgs overlays command-line arguments on the patient's actual values:
// up to three of age, smoke, active, where "-" keeps the baseline value.
func FromArgs(res predict.Result, args []string) (Input, error) {
	in := FromResult(res)

	if len(args) > 3 {
		return in, fmt.Errorf("expected at most 3 arguments, got %d", len(args))
	}

	if len(args) > 0 && args[0] != "-" {
		age, err := strconv.Atoi(args[0])
		if err != nil {
			return in, fmt.Errorf("bad age %q", args[0])
		}
		in.Age = age
	}
	if len(args) > 1 && args[1] != "-" {
		smoke, err := strconv.ParseBool(args[1])
		if err != nil {
			return in, fmt.Errorf("bad smoke flag %q", args[1])
		}
		in.Smoke = smoke
	}
	if len(args) > 2 && args[2] != "-" {
		active, err := strconv.ParseBool(args[2])
		if err != nil {
			return in, fmt.Errorf("bad active flag %q", args[2])
		}
		in.Active = active
	}

	return in, nil
}

// Adjust applies the fixed offsets to the base probability: 0.008 per
// simulated year, 0.15 for taking up or quitting smoking, 0.10 for stopping
// or starting activity. The result is clamped to [0.01, 0.99].
func Adjust(res predict.Result, in Input) float64 {
	risk := res.RiskProbability

	risk += float64(in.Age-res.Age) * 0.008

	if res.Smokes() && !in.Smoke {
		risk -= 0.15
	}
	if !res.Smokes() && in.Smoke {
		risk += 0.15
	}

	if res.IsActive() && !in.Active {
		risk += 0.10
	}
	if !res.IsActive() && in.Active {
		risk -= 0.10
	}

	if risk < 0.01 {
		risk = 0.01
	}
	if risk > 0.99 {
		risk = 0.99
	}
	return risk
}
