// Package hrzone derives heart-rate training bands from age and resting heart
// rate. Max HR uses the Tanaka estimate and bands are placed over the heart
// rate reserve (Karvonen).
package hrzone

import (
	"math"

	"github.com/okian/readiness/internal/domain/model"
)

const (
	MinAge       = 10
	MaxAge       = 100
	MinRestingHR = 25
	MaxRestingHR = 120

	tanakaIntercept = 208.0
	tanakaSlope     = 0.7
)

// Band is one inclusive bpm range.
type Band struct {
	Number  int     `json:"zone"`
	Name    string  `json:"name"`
	LowPct  float64 `json:"low_pct"`
	HighPct float64 `json:"high_pct"`
	MinBPM  int     `json:"min_bpm"`
	MaxBPM  int     `json:"max_bpm"`
}

// Zones is the full set of bands for one athlete.
type Zones struct {
	MaxHR     int    `json:"max_hr"`
	RestingHR int    `json:"resting_hr"`
	Reserve   int    `json:"reserve"`
	Bands     []Band `json:"bands"`
}

var bands = [...]struct {
	name   string
	lo, hi float64
}{
	{"Recovery", 50, 60},
	{"Aerobic Base", 60, 70},
	{"Tempo/Threshold", 70, 85},
	{"VO2max", 85, 95},
	{"Anaerobic/Speed", 95, 100},
}

// MaxHR estimates maximum heart rate as 208 - 0.7 x age, rounded.
func MaxHR(age int) (int, error) {
	if age < MinAge || age > MaxAge {
		return 0, model.OutOfRange("age", float64(age), MinAge, MaxAge)
	}
	return int(math.Round(tanakaIntercept - tanakaSlope*float64(age))), nil
}

// Calculate returns five contiguous, non-overlapping bands. The first band
// starts at 50% of reserve and the last ends at max HR.
func Calculate(age, restingHR int) (Zones, error) {
	maxHR, err := MaxHR(age)
	if err != nil {
		return Zones{}, err
	}
	if restingHR < MinRestingHR || restingHR > MaxRestingHR {
		return Zones{}, model.OutOfRange("resting_hr", float64(restingHR), MinRestingHR, MaxRestingHR)
	}
	if restingHR >= maxHR {
		return Zones{}, &model.ValidationError{Field: "resting_hr", Rule: "must be below the estimated max HR"}
	}

	reserve := maxHR - restingHR
	at := func(pct float64) int {
		return int(math.Round(float64(restingHR) + pct/100*float64(reserve)))
	}

	out := make([]Band, len(bands))
	lo := at(bands[0].lo)
	for i, b := range bands {
		hi := at(b.hi)
		if i == len(bands)-1 {
			hi = maxHR
		}
		// rounding can collapse a narrow band on a small reserve
		if hi < lo {
			hi = lo
		}
		out[i] = Band{
			Number:  i + 1,
			Name:    b.name,
			LowPct:  b.lo,
			HighPct: b.hi,
			MinBPM:  lo,
			MaxBPM:  hi,
		}
		lo = hi + 1
	}
	return Zones{MaxHR: maxHR, RestingHR: restingHR, Reserve: reserve, Bands: out}, nil
}
