package view

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/docker/go-units"
)

var sizeLabels = []string{"Bytes", "KB", "MB", "GB", "TB"}

// FormatBytes renders a byte count with 1024-based units and at most two decimals,
// e.g. 640000 -> "625 KB", 2500000 -> "2.38 MB".
func FormatBytes(size int64) string {
	if size == 0 {
		return "0 Bytes"
	}

	formatted := units.CustomSize("%.2f %s", float64(size), 1024.0, sizeLabels)
	value, label, found := strings.Cut(formatted, " ")
	if !found {
		return formatted
	}
	number, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return formatted
	}
	return strconv.FormatFloat(number, 'f', -1, 64) + " " + label
}

// FormatReduction renders the reduction exactly as the service computed it.
// A missing value is shown as such rather than as a number.
func FormatReduction(percentage json.Number) string {
	if percentage == "" {
		return "n/a"
	}
	return percentage.String() + "%"
}
