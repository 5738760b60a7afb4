package dataops

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Profile summarizes the distribution of one numeric column
type Profile struct {
	Column   string  `json:"column"`
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Median   float64 `json:"median"`
	Q25      float64 `json:"q25"`
	Q75      float64 `json:"q75"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`
	IsNormal bool    `json:"is_normal"`
	Outliers int     `json:"outliers"`
}

// ProfileColumn computes summary statistics for data
func ProfileColumn(column string, data []float64) (Profile, error) {
	p := Profile{Column: column, Count: len(data)}

	mean, err := stats.Mean(data)
	if err != nil {
		return p, err
	}
	stdDev, err := stats.StandardDeviation(data)
	if err != nil {
		return p, err
	}
	min, err := stats.Min(data)
	if err != nil {
		return p, err
	}
	max, err := stats.Max(data)
	if err != nil {
		return p, err
	}
	median, err := stats.Median(data)
	if err != nil {
		return p, err
	}
	q25, q75, err := quartiles(data)
	if err != nil {
		return p, err
	}

	p.Mean, p.StdDev, p.Min, p.Max, p.Median = mean, stdDev, min, max, median
	p.Q25, p.Q75 = q25, q75
	p.Skewness = skewness(data, mean, stdDev)
	p.Kurtosis = kurtosis(data, mean, stdDev)
	p.IsNormal = isNormal(p.Skewness, p.Kurtosis, len(data))
	p.Outliers = len(OutlierIndexes(data, q25, q75))
	return p, nil
}

func quartiles(data []float64) (float64, float64, error) {
	q25, err := stats.Percentile(data, 25)
	if err != nil {
		return 0, 0, err
	}
	q75, err := stats.Percentile(data, 75)
	if err != nil {
		return 0, 0, err
	}
	return q25, q75, nil
}

// skewness is the adjusted Fisher-Pearson coefficient
func skewness(data []float64, mean, stdDev float64) float64 {
	if len(data) < 3 || stdDev == 0 {
		return 0
	}
	n := float64(len(data))
	sum := 0.0
	for _, x := range data {
		d := (x - mean) / stdDev
		sum += d * d * d
	}
	return sum / n * math.Sqrt(n*(n-1)) / (n - 2)
}

// kurtosis returns total (not excess) sample kurtosis
func kurtosis(data []float64, mean, stdDev float64) float64 {
	if len(data) < 4 || stdDev == 0 {
		return 3
	}
	n := float64(len(data))
	sum := 0.0
	for _, x := range data {
		d := (x - mean) / stdDev
		sum += d * d * d * d
	}
	return sum / n
}

// isNormal approximates a normality test from skewness and kurtosis
func isNormal(skew, kurt float64, n int) bool {
	if n < 3 {
		return false
	}
	testStat := math.Abs(skew) + math.Abs(kurt-3)/2
	chi := distuv.ChiSquared{K: 2}
	return 1-chi.CDF(testStat*testStat) > 0.05
}

// OutlierIndexes returns the positions outside the 1.5 IQR fences
func OutlierIndexes(data []float64, q25, q75 float64) []int {
	iqr := q75 - q25
	lower, upper := q25-1.5*iqr, q75+1.5*iqr
	var out []int
	for i, x := range data {
		if x < lower || x > upper {
			out = append(out, i)
		}
	}
	return out
}
