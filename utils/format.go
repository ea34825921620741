package utils

import (
	"fmt"
	"strconv"
)

// MoneyToString renders a USD amount the way it appears in messages and
// reports.
func MoneyToString(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

func FloatToString(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func BoolToString(value bool) string {
	return strconv.FormatBool(value)
}
