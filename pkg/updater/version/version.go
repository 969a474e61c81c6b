// Package version compares dotted release versions.
package version

import (
	"strconv"
	"strings"
)

// Compare returns 1 when v1 is newer than v2, -1 when older and 0 when
// equal. A leading "v" and any pre-release or build suffix are ignored;
// missing components count as zero.
func Compare(v1, v2 string) int {
	a, b := parts(v1), parts(v2)
	for len(a) < len(b) {
		a = append(a, 0)
	}
	for len(b) < len(a) {
		b = append(b, 0)
	}
	for i := range a {
		switch {
		case a[i] > b[i]:
			return 1
		case a[i] < b[i]:
			return -1
		}
	}
	return 0
}

// IsRelease reports whether v looks like a tagged release rather than a
// development build such as "dev".
func IsRelease(v string) bool {
	v = strings.TrimPrefix(v, "v")
	if v == "" {
		return false
	}
	_, err := strconv.Atoi(strings.SplitN(v, ".", 2)[0])
	return err == nil
}

func parts(v string) []int {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	var out []int
	for _, p := range strings.Split(v, ".") {
		n, _ := strconv.Atoi(p)
		out = append(out, n)
	}
	return out
}
