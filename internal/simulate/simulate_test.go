package simulate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alive/internal/intake"
	"alive/internal/predict"
)

func base(age, smoke, active int, risk float64) predict.Result {
	rec := intake.NewRecord()
	rec.Age = age
	rec.Smoke = smoke
	rec.Active = active
	return predict.Result{
		Record:   rec,
		Response: predict.Response{RiskProbability: risk},
	}
}

func TestFromResultSeedsActualValues(t *testing.T) {
	in := FromResult(base(58, 1, 0, 0.4))
	assert.Equal(t, Input{Age: 58, Smoke: true, Active: false}, in)
}

func TestFromArgs(t *testing.T) {
	res := base(58, 1, 0, 0.4)

	tests := []struct {
		name    string
		args    []string
		want    Input
		wantErr string
	}{
		{name: "no args keeps baseline", args: nil, want: Input{Age: 58, Smoke: true, Active: false}},
		{name: "age only", args: []string{"65"}, want: Input{Age: 65, Smoke: true, Active: false}},
		{name: "dashes keep baseline", args: []string{"-", "false", "-"}, want: Input{Age: 58, Smoke: false, Active: false}},
		{name: "all three", args: []string{"50", "false", "true"}, want: Input{Age: 50, Smoke: false, Active: true}},
		{name: "bad age", args: []string{"old"}, wantErr: `bad age "old"`},
		{name: "bad smoke", args: []string{"58", "maybe"}, wantErr: `bad smoke flag "maybe"`},
		{name: "bad active", args: []string{"58", "true", "sometimes"}, wantErr: `bad active flag "sometimes"`},
		{name: "too many", args: []string{"58", "true", "true", "extra"}, wantErr: "at most 3 arguments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromArgs(res, tt.args)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdjust(t *testing.T) {
	tests := []struct {
		name string
		res  predict.Result
		in   Input
		want float64
	}{
		{
			name: "no change",
			res:  base(50, 0, 1, 0.30),
			in:   Input{Age: 50, Smoke: false, Active: true},
			want: 0.30,
		},
		{
			name: "ten years older",
			res:  base(50, 0, 1, 0.30),
			in:   Input{Age: 60, Smoke: false, Active: true},
			want: 0.38,
		},
		{
			name: "five years younger",
			res:  base(50, 0, 1, 0.30),
			in:   Input{Age: 45, Smoke: false, Active: true},
			want: 0.26,
		},
		{
			name: "takes up smoking",
			res:  base(50, 0, 1, 0.30),
			in:   Input{Age: 50, Smoke: true, Active: true},
			want: 0.45,
		},
		{
			name: "quits smoking",
			res:  base(50, 1, 1, 0.30),
			in:   Input{Age: 50, Smoke: false, Active: true},
			want: 0.15,
		},
		{
			name: "stops exercising",
			res:  base(50, 0, 1, 0.30),
			in:   Input{Age: 50, Smoke: false, Active: false},
			want: 0.40,
		},
		{
			name: "starts exercising",
			res:  base(50, 0, 0, 0.30),
			in:   Input{Age: 50, Smoke: false, Active: true},
			want: 0.20,
		},
		{
			name: "everything at once",
			res:  base(50, 1, 0, 0.50),
			in:   Input{Age: 55, Smoke: false, Active: true},
			want: 0.50 + 5*0.008 - 0.15 - 0.10,
		},
		{
			name: "clamped low",
			res:  base(50, 1, 0, 0.05),
			in:   Input{Age: 40, Smoke: false, Active: true},
			want: 0.01,
		},
		{
			name: "clamped high",
			res:  base(50, 0, 1, 0.95),
			in:   Input{Age: 70, Smoke: true, Active: false},
			want: 0.99,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Adjust(tt.res, tt.in), 1e-9)
		})
	}
}
