// Package rank generates dense lexicographic sort keys.
//
// Keys are strings over the ASCII-ordered alphabet 0-9A-Za-z and never end in
// the minimum symbol, so a key strictly before any existing key always exists.
package rank

import (
	"fmt"
	"strings"

	"folio/internal/domain"
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const base = len(alphabet)

// Initial returns the key used for the first item of an empty list.
func Initial() string {
	k, _ := Between("", "")
	return k
}

// After returns a key strictly greater than k.
func After(k string) (string, error) {
	return Between(k, "")
}

// Before returns a key strictly less than k.
func Before(k string) (string, error) {
	return Between("", k)
}

// Between returns a key strictly between left and right. An empty left means
// no lower bound and an empty right means no upper bound.
func Between(left, right string) (string, error) {
	if err := validate(left); err != nil {
		return "", err
	}
	if err := validate(right); err != nil {
		return "", err
	}
	if right != "" && left >= right {
		return "", fmt.Errorf("rank %q is not before %q: %w", left, right, domain.ErrValidation)
	}
	return midpoint(left, right, right != ""), nil
}

// Valid reports whether k is a usable key.
func Valid(k string) bool {
	return k != "" && validate(k) == nil
}

func validate(k string) error {
	for i := 0; i < len(k); i++ {
		if strings.IndexByte(alphabet, k[i]) < 0 {
			return fmt.Errorf("rank %q contains invalid symbol %q: %w", k, k[i], domain.ErrValidation)
		}
	}
	if k != "" && k[len(k)-1] == alphabet[0] {
		return fmt.Errorf("rank %q ends with the minimum symbol: %w", k, domain.ErrValidation)
	}
	return nil
}

// midpoint assumes left < right (when bounded) and that neither ends in the
// minimum symbol. Missing characters of left are read as the minimum symbol.
func midpoint(left, right string, bounded bool) string {
	if bounded {
		n := 0
		for n < len(right) && digitAt(left, n) == right[n] {
			n++
		}
		if n > 0 {
			var rest string
			if n < len(left) {
				rest = left[n:]
			}
			return right[:n] + midpoint(rest, right[n:], true)
		}
	}

	lo := 0
	if left != "" {
		lo = strings.IndexByte(alphabet, left[0])
	}
	hi := base
	if bounded {
		hi = strings.IndexByte(alphabet, right[0])
	}

	if hi-lo > 1 {
		return string(alphabet[(lo+hi+1)/2])
	}
	if bounded && len(right) > 1 {
		return right[:1]
	}
	var rest string
	if len(left) > 1 {
		rest = left[1:]
	}
	return string(alphabet[lo]) + midpoint(rest, "", false)
}

func digitAt(s string, i int) byte {
	if i < len(s) {
		return s[i]
	}
	return alphabet[0]
}

// SpreadN returns n ascending keys spaced evenly over the key space, for bulk
// inserts that should leave room between neighbours.
func SpreadN(n int) []string {
	if n <= 0 {
		return nil
	}
	width, span := 1, base
	for span < 2*(n+1) {
		width++
		span *= base
	}
	step := span / (n + 1)

	keys := make([]string, n)
	buf := make([]byte, width)
	for i := range keys {
		v := (i + 1) * step
		for j := width - 1; j >= 0; j-- {
			buf[j] = alphabet[v%base]
			v /= base
		}
		keys[i] = strings.TrimRight(string(buf), alphabet[:1])
	}
	return keys
}
