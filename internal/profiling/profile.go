package profiling

import (
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Profile summarizes the shape of a score sample or an LLR population
type Profile struct {
	N          int     `json:"n"`
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Median     float64 `json:"median"`
	Q25        float64 `json:"q25"`
	Q75        float64 `json:"q75"`
	// Skewness and ExcessKurtosis are bias-corrected sample estimates, both 0
	// for a normal sample and for a constant one
	Skewness       float64 `json:"skewness"`
	ExcessKurtosis float64 `json:"excess_kurtosis"`
	// Outliers counts values beyond the 1.5 IQR fences
	Outliers   int `json:"outliers"`
	OutOfRange int `json:"out_of_range"`
}

// Analyze profiles data; OutOfRange counts values outside [lo, hi]
func Analyze(data []float64, lo, hi float64) (Profile, error) {
	p := Profile{N: len(data)}

	var err error
	if p.Mean, err = stats.Mean(data); err != nil {
		return p, err
	}
	if p.StdDev, err = stats.StandardDeviation(data); err != nil {
		return p, err
	}
	if p.Min, err = stats.Min(data); err != nil {
		return p, err
	}
	if p.Max, err = stats.Max(data); err != nil {
		return p, err
	}
	if p.Median, err = stats.Median(data); err != nil {
		return p, err
	}
	if p.Q25, err = stats.Percentile(data, 25); err != nil {
		return p, err
	}
	if p.Q75, err = stats.Percentile(data, 75); err != nil {
		return p, err
	}

	if p.StdDev > 0 {
		p.Skewness = stat.Skew(data, nil)
		p.ExcessKurtosis = stat.ExKurtosis(data, nil)
	}
	o, err := stats.QuartileOutliers(data)
	if err != nil {
		return p, err
	}
	p.Outliers = len(o.Mild) + len(o.Extreme)

	for _, x := range data {
		if x < lo || x > hi {
			p.OutOfRange++
		}
	}
	return p, nil
}
