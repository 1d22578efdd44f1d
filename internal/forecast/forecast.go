// Package forecast predicts daily order counts per (region, menu, shift)
// with a linear regression on 3- and 7-day moving averages.
package forecast

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"deliverystats/internal/stats"
)

const (
	// DefaultMinDays is the fewest observed days a series needs to be modelled.
	DefaultMinDays = 8

	dateLayout = "2006-01-02"

	machineEpsilon = 0x1p-52
)

// Options narrows the events that feed the model. Empty slices and zero
// times mean "no filter".
type Options struct {
	MinDays int
	Regions []string
	Menus   []string
	Buckets []stats.Bucket
	From    time.Time
	To      time.Time
}

// SeriesKey identifies one modelled series.
type SeriesKey struct {
	Region string       `json:"region"`
	Menu   string       `json:"menu"`
	Bucket stats.Bucket `json:"time_bucket"`
}

// Point is one calendar day of a series.
type Point struct {
	Date      string  `json:"date"`
	Actual    float64 `json:"actual"`
	MA3       float64 `json:"ma3"`
	MA7       float64 `json:"ma7"`
	Predicted float64 `json:"predicted"`
	Residual  float64 `json:"residual"`
}

// Model is count = CoefMA3*ma3 + CoefMA7*ma7 + Intercept. Degenerate is set
// when the moving averages were collinear or constant, so the coefficients
// are the minimum-norm choice among equally good fits.
type Model struct {
	CoefMA3    float64 `json:"coef_ma3"`
	CoefMA7    float64 `json:"coef_ma7"`
	Intercept  float64 `json:"intercept"`
	R2         float64 `json:"r2"`
	Degenerate bool    `json:"degenerate"`
}

// Predict evaluates the model.
func (m Model) Predict(ma3, ma7 float64) float64 {
	return m.CoefMA3*ma3 + m.CoefMA7*ma7 + m.Intercept
}

// Series is a fitted series with its next-day prediction.
type Series struct {
	SeriesKey
	Points         []Point `json:"points"`
	Model          Model   `json:"model"`
	NextDate       string  `json:"next_date"`
	NextPrediction float64 `json:"next_prediction"`
}

// Build counts accepted events per series and day, zero-fills missing days
// between the first and last observation, and fits one model per series.
// Series with fewer than MinDays observed days are skipped.
func Build(events []stats.RawEvent, opts Options) []Series {
	minDays := opts.MinDays
	if minDays <= 0 {
		minDays = DefaultMinDays
	}

	counts := DailyCounts(events, opts)
	out := make([]Series, 0, len(counts))
	for key, byDay := range counts {
		if len(byDay) < minDays {
			continue
		}
		dates, actual := fillDays(byDay)
		ma3 := RollingMean(actual, 3)
		ma7 := RollingMean(actual, 7)
		model, preds := Fit(actual, ma3, ma7)

		points := make([]Point, len(actual))
		for i := range actual {
			points[i] = Point{
				Date:      dates[i].Format(dateLayout),
				Actual:    actual[i],
				MA3:       ma3[i],
				MA7:       ma7[i],
				Predicted: preds[i],
				Residual:  actual[i] - preds[i],
			}
		}
		next := model.Predict(trailingMean(actual, 3), trailingMean(actual, 7))
		out = append(out, Series{
			SeriesKey:      key,
			Points:         points,
			Model:          model,
			NextDate:       dates[len(dates)-1].AddDate(0, 0, 1).Format(dateLayout),
			NextPrediction: math.Max(0, next),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].SeriesKey, out[j].SeriesKey
		if a.Region != b.Region {
			return a.Region < b.Region
		}
		if a.Menu != b.Menu {
			return a.Menu < b.Menu
		}
		return a.Bucket < b.Bucket
	})
	return out
}

// DailyCounts counts accepted events per series and date tag. Events whose
// date tag is not a calendar date are skipped.
func DailyCounts(events []stats.RawEvent, opts Options) map[SeriesKey]map[time.Time]int {
	regions := stringSet(opts.Regions)
	menus := stringSet(opts.Menus)
	buckets := make(map[stats.Bucket]bool, len(opts.Buckets))
	for _, b := range opts.Buckets {
		buckets[b] = true
	}

	out := make(map[SeriesKey]map[time.Time]int)
	for _, e := range stats.Normalize(events) {
		if !stats.IsAccepted(e.Kind) {
			continue
		}
		day, err := time.Parse(dateLayout, stats.NormalizeDateTag(e.DateTag))
		if err != nil {
			continue
		}
		if !opts.From.IsZero() && day.Before(truncateDay(opts.From)) {
			continue
		}
		if !opts.To.IsZero() && day.After(truncateDay(opts.To)) {
			continue
		}
		if len(regions) > 0 && !regions[e.Region] {
			continue
		}
		if len(menus) > 0 && !menus[e.Menu] {
			continue
		}
		if len(buckets) > 0 && !buckets[e.Bucket] {
			continue
		}
		k := SeriesKey{Region: e.Region, Menu: e.Menu, Bucket: e.Bucket}
		if out[k] == nil {
			out[k] = make(map[time.Time]int)
		}
		out[k][day]++
	}
	return out
}

// RollingMean is a trailing mean over up to window values, so the first
// entries average whatever history exists.
func RollingMean(xs []float64, window int) []float64 {
	out := make([]float64, len(xs))
	var sum float64
	for i, x := range xs {
		sum += x
		if i >= window {
			sum -= xs[i-window]
		}
		n := window
		if i+1 < window {
			n = i + 1
		}
		out[i] = sum / float64(n)
	}
	return out
}

// Fit solves the least-squares problem y ~ ma3 + ma7 + 1 and returns the
// model with its in-sample predictions. The features are centred and the
// intercept recovered from the means; when they are collinear or constant
// the minimum-norm solution is taken and the model is marked Degenerate.
func Fit(y, ma3, ma7 []float64) (Model, []float64) {
	n := len(y)
	preds := make([]float64, n)
	if n == 0 {
		return Model{Degenerate: true}, preds
	}

	yMean, m3, m7 := stat.Mean(y, nil), stat.Mean(ma3, nil), stat.Mean(ma7, nil)
	x := mat.NewDense(n, 2, nil)
	yc := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, ma3[i]-m3)
		x.Set(i, 1, ma7[i]-m7)
		yc.SetVec(i, y[i]-yMean)
	}
	coef, rank := minNormSolve(x, yc)

	m := Model{CoefMA3: coef[0], CoefMA7: coef[1], Degenerate: rank < 2}
	m.Intercept = yMean - m.CoefMA3*m3 - m.CoefMA7*m7
	for i := range y {
		preds[i] = m.Predict(ma3[i], ma7[i])
	}
	m.R2 = rSquared(y, preds)
	return m, preds
}

// minNormSolve returns the minimum-norm least-squares solution of a·x = b
// and the numerical rank of a. Singular values below eps·max(rows, cols)
// relative to the largest are treated as zero.
func minNormSolve(a *mat.Dense, b *mat.VecDense) ([]float64, int) {
	r, c := a.Dims()
	zero := make([]float64, c)

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return zero, 0
	}
	rank := svd.Rank(machineEpsilon * float64(max(r, c)))
	if rank == 0 {
		return zero, 0
	}
	var x mat.VecDense
	svd.SolveVecTo(&x, b, rank)
	out := append([]float64(nil), x.RawVector().Data...)
	if hasNaN(out) {
		return zero, 0
	}
	return out, rank
}

func rSquared(y, preds []float64) float64 {
	mean := stat.Mean(y, nil)
	var ssRes, ssTot float64
	for i := range y {
		ssRes += (y[i] - preds[i]) * (y[i] - preds[i])
		ssTot += (y[i] - mean) * (y[i] - mean)
	}
	if ssTot == 0 {
		if ssRes < 1e-12 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

func fillDays(byDay map[time.Time]int) ([]time.Time, []float64) {
	var first, last time.Time
	for d := range byDay {
		if first.IsZero() || d.Before(first) {
			first = d
		}
		if last.IsZero() || d.After(last) {
			last = d
		}
	}
	var dates []time.Time
	var values []float64
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
		values = append(values, float64(byDay[d]))
	}
	return dates, values
}

func trailingMean(xs []float64, window int) float64 {
	if len(xs) == 0 {
		return 0
	}
	if window > len(xs) {
		window = len(xs)
	}
	return stat.Mean(xs[len(xs)-window:], nil)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func stringSet(xs []string) map[string]bool {
	out := make(map[string]bool, len(xs))
	for _, x := range xs {
		out[x] = true
	}
	return out
}

func hasNaN(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return true
		}
	}
	return false
}
