package model

import "math"

// RoundToCent rounds half-up to two decimal places. All money leaving the
// pricing path goes through here exactly once.
func RoundToCent(amount float64) float64 {
	return math.Round(amount*100) / 100
}
