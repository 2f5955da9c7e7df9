package capability

import "math"

// Direction tells a scale function which way a value is travelling.
type Direction int

const (
	FromDevice Direction = iota // raw device units -> capability units
	ToDevice                    // capability units -> raw device units
)

// ScaleFunc transforms a value between device units and capability units.
// A nil ScaleFunc means no transform.
type ScaleFunc func(value float64, dir Direction) float64

// DivideBy returns a constant-divisor scale: decode divides, encode
// multiplies, so decode(encode(v)) == v.
func DivideBy(divisor float64) ScaleFunc {
	return func(v float64, dir Direction) float64 {
		if dir == FromDevice {
			return v / divisor
		}
		return v * divisor
	}
}

// LogLux is the asymmetric illuminance transform: the wire carries
// 10000*log10(lux)+1, the capability carries lux.
func LogLux() ScaleFunc {
	return func(v float64, dir Direction) float64 {
		if dir == FromDevice {
			return math.Pow(10, (v-1)/10000)
		}
		return 10000*math.Log10(v) + 1
	}
}

// RoundTo rounds to the given number of decimal digits, half up.
func RoundTo(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Floor(v*p+0.5) / p
}

// applyScale runs a value through the scale and optional precision steps,
// validating numeric-ness after the transform. A non-numeric result is a
// decode anomaly, never silently dropped.
func applyScale(name string, raw float64, scale ScaleFunc, precision *int, dir Direction) (float64, error) {
	v := raw
	if scale != nil {
		v = scale(v, dir)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, Decodef("%s: scaling %v produced non-numeric result", name, raw)
	}
	if precision != nil {
		v = RoundTo(v, *precision)
	}
	return v, nil
}
