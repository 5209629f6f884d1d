// Byte-level parsers for the numeric field formats in sacct output.  These run for every field of
// every job line, so they work directly on byte slices and avoid strconv.

package slurm

import (
	"errors"
)

func parseUint64(bs []byte) (uint64, error) {
	var n uint64
	if len(bs) == 0 {
		return 0, errors.New("Empty")
	}
	for _, c := range bs {
		if c < '0' || c > '9' {
			return 0, errors.New("Not a digit")
		}
		m := n*10 + uint64(c-'0')
		if m < n {
			return 0, errors.New("Out of range")
		}
		n = m
	}
	return n, nil
}

// A simple nonnegative float parser: digits with an optional fraction, no sign, no exponent, no
// Inf/NaN.  That is all sacct will produce for the fields we care about.
func parseFloat(bs []byte) (float64, error) {
	var n float64
	if len(bs) == 0 {
		return 0, errors.New("Empty")
	}
	i := 0
	for ; i < len(bs); i++ {
		c := bs[i]
		if c == '.' {
			break
		}
		if c < '0' || c > '9' {
			return 0, errors.New("Not a digit")
		}
		n = n*10 + float64(c-'0')
	}
	if i < len(bs) {
		i++ // skip the decimal point
		if i == len(bs) {
			return 0, errors.New("Empty fraction")
		}
		f := 0.1
		for ; i < len(bs); i++ {
			c := bs[i]
			if c < '0' || c > '9' {
				return 0, errors.New("Not a digit")
			}
			n += float64(c-'0') * f
			f *= 0.1
		}
	}
	return n, nil
}

// Memory quantities (ReqMem, MaxRSS) are a number with an optional unit suffix K/M/G/T, and in
// older Slurm versions additionally a per-node/per-core marker `n` or `c` after the unit.  The
// suffix is stripped, not converted: the accumulated values stay in the unit sacct reported.
func parseSize(bs []byte) (float64, error) {
	if len(bs) > 0 {
		switch bs[len(bs)-1] {
		case 'n', 'c':
			bs = bs[:len(bs)-1]
		}
	}
	if len(bs) > 0 {
		switch bs[len(bs)-1] {
		case 'K', 'M', 'G', 'T':
			bs = bs[:len(bs)-1]
		}
	}
	return parseFloat(bs)
}

// Elapsed / time limit values are [D-]HH:MM:SS[.fff] with missing leading components allowed: an
// optional days part terminated by `-`, then up to three colon-separated components right-aligned
// to hours:minutes:seconds, the last optionally carrying a fraction.  A bare MM:SS or bare SS is
// valid.  The fraction is preserved in the result.

var errBadElapsed = errors.New("Bad elapsed time format")

func parseElapsed(bs []byte) (float64, error) {
	var days uint64

	n, i := parseUint64Here(bs, 0)
	if i < 0 {
		return 0, errBadElapsed
	}

	// Value followed by - is the day count
	if i < len(bs) && bs[i] == '-' {
		days = n
		i++
		n, i = parseUint64Here(bs, i)
		if i < 0 {
			return 0, errBadElapsed
		}
	}

	var parts [3]uint64
	count := 1
	parts[0] = n
	for i < len(bs) && bs[i] == ':' {
		if count == len(parts) {
			return 0, errBadElapsed
		}
		i++
		n, i = parseUint64Here(bs, i)
		if i < 0 {
			return 0, errBadElapsed
		}
		parts[count] = n
		count++
	}

	// Fractional seconds
	var frac float64
	if i < len(bs) && bs[i] == '.' {
		i++
		start := i
		f := 0.1
		for i < len(bs) && bs[i] >= '0' && bs[i] <= '9' {
			frac += float64(bs[i]-'0') * f
			f *= 0.1
			i++
		}
		if i == start {
			return 0, errBadElapsed
		}
	}

	// Better be done
	if i < len(bs) {
		return 0, errBadElapsed
	}

	// Right-align the components: the last is always seconds
	seconds := parts[count-1]
	var minutes, hours uint64
	if count >= 2 {
		minutes = parts[count-2]
	}
	if count == 3 {
		hours = parts[count-3]
	}

	return float64(days)*86400 + float64(hours)*3600 + float64(minutes)*60 +
		float64(seconds) + frac, nil
}

func parseUint64Here(bs []byte, i int) (uint64, int) {
	start := i
	var n uint64
	for i < len(bs) && bs[i] >= '0' && bs[i] <= '9' {
		old := n
		n = n*10 + uint64(bs[i]-'0')
		if n < old {
			return 0, -1
		}
		i++
	}
	if i == start {
		return 0, -1
	}
	return n, i
}
