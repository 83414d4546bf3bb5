package balances

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary describes a window of the net worth series in aggregate.
type Summary struct {
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	Currency      string  `json:"currency"`
	Days          int     `json:"days"`
	StartValue    float64 `json:"start_value"`
	EndValue      float64 `json:"end_value"`
	NetChange     float64 `json:"net_change"`
	PercentChange float64 `json:"percent_change"`
	MinValue      float64 `json:"min_value"`
	MaxValue      float64 `json:"max_value"`
	MeanDelta     float64 `json:"mean_daily_delta"`
	DeltaStdDev   float64 `json:"daily_delta_stddev"`
	TrendPerDay   float64 `json:"trend_per_day"`
}

// Summarize computes aggregate statistics for an owner's net worth
// series over the requested window.
func (s *Service) Summarize(owner string, req SeriesRequest) (*Summary, error) {
	result, err := s.Series(owner, req)
	if err != nil {
		return nil, err
	}
	return summarize(result), nil
}

func summarize(result *SeriesResult) *Summary {
	summary := &Summary{
		StartDate: result.StartDate,
		EndDate:   result.EndDate,
		Currency:  result.Currency,
	}

	series := result.Groups["networth"]
	if len(series) == 0 {
		return summary
	}

	days := make([]string, 0, len(series))
	for day := range series {
		days = append(days, day)
	}
	sort.Strings(days)

	xs := make([]float64, len(days))
	values := make([]float64, len(days))
	summary.MinValue = series[days[0]]
	summary.MaxValue = series[days[0]]
	for i, day := range days {
		v := series[day]
		xs[i] = float64(i)
		values[i] = v
		if v < summary.MinValue {
			summary.MinValue = v
		}
		if v > summary.MaxValue {
			summary.MaxValue = v
		}
	}

	summary.Days = len(days)
	summary.StartValue = values[0]
	summary.EndValue = values[len(values)-1]
	summary.NetChange = summary.EndValue - summary.StartValue
	if summary.StartValue != 0 {
		summary.PercentChange = summary.NetChange / summary.StartValue * 100
	}

	if len(values) > 1 {
		deltas := make([]float64, len(values)-1)
		for i := 1; i < len(values); i++ {
			deltas[i-1] = values[i] - values[i-1]
		}
		summary.MeanDelta = stat.Mean(deltas, nil)
		summary.DeltaStdDev = stat.StdDev(deltas, nil)
		_, summary.TrendPerDay = stat.LinearRegression(xs, values, nil, false)
	}

	return summary
}
