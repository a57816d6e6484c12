package spectrum

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadASCII parses whitespace-separated columns: dispersion, flux and an
// optional variance. Blank lines and lines starting with '#' are skipped.
func ReadASCII(r io.Reader) (*Spectrum, error) {
	var disp, flux, variance []float64
	withVariance := -1

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 2 {
			return nil, fmt.Errorf("spectrum: line %d: need at least 2 columns, got %d", line, len(fields))
		}
		hasVar := 0
		if len(fields) >= 3 {
			hasVar = 1
		}
		if withVariance == -1 {
			withVariance = hasVar
		} else if withVariance != hasVar {
			return nil, fmt.Errorf("spectrum: line %d: inconsistent column count", line)
		}

		values := make([]float64, 2+hasVar)
		for i := range values {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, fmt.Errorf("spectrum: line %d column %d: %w", line, i+1, err)
			}
			values[i] = v
		}
		disp = append(disp, values[0])
		flux = append(flux, values[1])
		if hasVar == 1 {
			variance = append(variance, values[2])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("spectrum: read: %w", err)
	}
	return New(disp, flux, variance)
}
