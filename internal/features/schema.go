// Package features defines the fixed transit-candidate feature schema used by
// the classifier: the 14 Kepler Object of Interest (KOI) columns, a fixed-size
// vector indexed by them, and a presence mask for training rows.
package features

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Feature identifies one of the 14 KOI columns. The zero value is Period.
type Feature int

const (
	Period Feature = iota
	Duration
	Impact
	Depth
	PlanetRadius
	Insolation
	ModelSNR
	StellarRadius
	StellarTeff
	StellarLogG
	FlagNotTransit
	FlagStellarEclipse
	FlagCentroidOffset
	FlagEphemerisMatch

	// Count is the number of features in the schema.
	Count int = iota
)

var names = [Count]string{
	"koi_period",
	"koi_duration",
	"koi_impact",
	"koi_depth",
	"koi_prad",
	"koi_insol",
	"koi_model_snr",
	"koi_srad",
	"koi_steff",
	"koi_slogg",
	"koi_fpflag_nt",
	"koi_fpflag_ss",
	"koi_fpflag_co",
	"koi_fpflag_ec",
}

var byName = func() map[string]Feature {
	m := make(map[string]Feature, Count)
	for i, n := range names {
		m[n] = Feature(i)
	}
	return m
}()

// String returns the column name of the feature.
func (f Feature) String() string {
	if f < 0 || int(f) >= Count {
		return fmt.Sprintf("Feature(%d)", int(f))
	}
	return names[f]
}

// Lookup resolves a column name to its Feature. Matching is exact.
func Lookup(name string) (Feature, bool) {
	f, ok := byName[name]
	return f, ok
}

// All returns the features in schema order. The slice is a fresh copy.
func All() []Feature {
	out := make([]Feature, Count)
	for i := range out {
		out[i] = Feature(i)
	}
	return out
}

// Names returns the column names in schema order.
func Names() []string {
	out := make([]string, Count)
	copy(out, names[:])
	return out
}

// Vector holds one value per feature. Absent values are 0.
type Vector [Count]float64

// Get returns the value of f.
func (v *Vector) Get(f Feature) float64 { return v[f] }

// Set assigns the value of f.
func (v *Vector) Set(f Feature, x float64) { v[f] = x }

// Map returns the vector keyed by column name.
func (v Vector) Map() map[string]float64 {
	m := make(map[string]float64, Count)
	for i, x := range v {
		m[names[i]] = x
	}
	return m
}

// FromMap builds a vector from a decoded JSON object. Numbers and numeric
// strings are accepted; any other value, and any absent key, yields 0.
func FromMap(m map[string]any) Vector {
	var v Vector
	for i, n := range names {
		if x, ok := ToFloat(m[n]); ok {
			v[i] = x
		}
	}
	return v
}

// ToFloat coerces a JSON-decoded value into a finite float64.
func ToFloat(raw any) (float64, bool) {
	var x float64
	switch t := raw.(type) {
	case float64:
		x = t
	case float32:
		x = float64(t)
	case int:
		x = float64(t)
	case int64:
		x = float64(t)
	case bool:
		if t {
			x = 1
		}
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		x = f
	default:
		return 0, false
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, false
	}
	return x, true
}

// Mask records which features carried a usable numeric value.
type Mask uint16

// Has reports whether f is present.
func (m Mask) Has(f Feature) bool { return m&(1<<uint(f)) != 0 }

// With returns a copy of m with f marked present.
func (m Mask) With(f Feature) Mask { return m | 1<<uint(f) }

// Full is the mask with every feature present.
const Full Mask = 1<<Count - 1
