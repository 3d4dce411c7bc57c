package media

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Fraction is an exact ratio of two integers, used for framerates and
// pixel aspect ratios. The zero value means "unset".
type Fraction struct {
	Num int
	Den int
}

// NewFraction builds a fraction without reducing it.
func NewFraction(num, den int) Fraction {
	return Fraction{Num: num, Den: den}
}

// ParseFraction parses "num/den". A bare integer parses as num/1.
func ParseFraction(s string) (Fraction, error) {
	num, den := 0, 1
	var err error
	if i := strings.IndexByte(s, '/'); i >= 0 {
		num, err = strconv.Atoi(strings.TrimSpace(s[:i]))
		if err != nil {
			return Fraction{}, fmt.Errorf("invalid fraction %q: %w", s, err)
		}
		den, err = strconv.Atoi(strings.TrimSpace(s[i+1:]))
		if err != nil {
			return Fraction{}, fmt.Errorf("invalid fraction %q: %w", s, err)
		}
	} else {
		num, err = strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return Fraction{}, fmt.Errorf("invalid fraction %q: %w", s, err)
		}
	}
	if den == 0 {
		return Fraction{}, fmt.Errorf("invalid fraction %q: zero denominator", s)
	}
	return Fraction{Num: num, Den: den}, nil
}

// IsZero reports whether the fraction is unset.
func (f Fraction) IsZero() bool {
	return f.Num == 0 && f.Den == 0
}

// Valid reports whether the fraction has a nonzero denominator.
func (f Fraction) Valid() bool {
	return f.Den != 0
}

// Equal compares two fractions by value, so 2/4 equals 1/2.
func (f Fraction) Equal(o Fraction) bool {
	return f.Num*o.Den == o.Num*f.Den
}

// Reduce returns the fraction in lowest terms with a positive
// denominator.
func (f Fraction) Reduce() Fraction {
	if f.Den == 0 {
		return f
	}
	if f.Den < 0 {
		f.Num, f.Den = -f.Num, -f.Den
	}
	g := gcd(abs(f.Num), f.Den)
	if g > 1 {
		f.Num /= g
		f.Den /= g
	}
	return f
}

// Interval returns the duration of one frame at this framerate, or 0
// when the framerate is unset.
func (f Fraction) Interval() time.Duration {
	if f.Num <= 0 || f.Den <= 0 {
		return 0
	}
	return time.Duration(int64(time.Second) * int64(f.Den) / int64(f.Num))
}

func (f Fraction) String() string {
	return fmt.Sprintf("%d/%d", f.Num, f.Den)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// IntRange is an inclusive range of integers.
type IntRange struct {
	Min int
	Max int
}

// Contains reports whether v lies in the range.
func (r IntRange) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// FractionRange is an inclusive range of fractions.
type FractionRange struct {
	Min Fraction
	Max Fraction
}

// Contains reports whether f lies in the range. All denominators must
// be positive.
func (r FractionRange) Contains(f Fraction) bool {
	if !f.Valid() || !r.Min.Valid() || !r.Max.Valid() {
		return false
	}
	return f.Num*r.Min.Den >= r.Min.Num*f.Den && f.Num*r.Max.Den <= r.Max.Num*f.Den
}
