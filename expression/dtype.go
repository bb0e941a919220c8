package expression

import "math"

// DType is the logical element type of a matrix. Values are held as float64
// internally; the tag preserves the width the data arrived with so that
// integer inputs promote losslessly (Int32 to Float32, Int64 to Float64)
// and tolerance checks use the epsilon of the correct float width.
type DType int

const (
	Int32 DType = iota
	Int64
	Float32
	Float64
)

const (
	epsFloat32 = float64(1.1920928955078125e-07) // 2^-23
	epsFloat64 = float64(2.220446049250313e-16)  // 2^-52
)

func (d DType) String() string {
	switch d {
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return "unknown"
	}
}

// IsInteger reports whether the dtype is an integer width.
func (d DType) IsInteger() bool { return d == Int32 || d == Int64 }

// Float returns the float width an integer dtype promotes to.
// Float dtypes return themselves.
func (d DType) Float() DType {
	switch d {
	case Int32:
		return Float32
	case Int64:
		return Float64
	default:
		return d
	}
}

// Eps returns the machine epsilon of the dtype's float width. Integer
// dtypes report zero: integral data has no rounding slack.
func (d DType) Eps() float64 {
	switch d {
	case Float32:
		return epsFloat32
	case Float64:
		return epsFloat64
	default:
		return 0
	}
}

func isIntegral(v float64) bool {
	return v == math.Trunc(v) && !math.IsInf(v, 0)
}

func allIntegral(vals []float64) bool {
	for _, v := range vals {
		if !isIntegral(v) {
			return false
		}
	}
	return true
}
