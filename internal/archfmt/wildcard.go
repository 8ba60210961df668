package archfmt

import "runtime"

// CaseFold reports whether path comparisons on the given OS are
// case-insensitive. Windows folds; everything else is byte-exact, per
// §9 "Windows vs Unix path semantics".
func CaseFold(goos string) bool {
	return goos == "windows"
}

// HostCaseFold is CaseFold for the running binary's OS.
func HostCaseFold() bool {
	return CaseFold(runtime.GOOS)
}

func foldByte(b byte, fold bool) byte {
	if fold && b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

// MatchWildcard reports whether name matches pattern, where '*' matches any
// run of bytes up to the next '/' and '?' matches exactly one byte that is
// not '/'. Matching happens before any `-to` rename mapping is applied
// (§9).
func MatchWildcard(pattern, name string, fold bool) bool {
	return matchWildcard([]byte(pattern), []byte(name), fold)
}

func matchWildcard(pattern, name []byte, fold bool) bool {
	var pi, ni int
	var starPi, starNi int = -1, -1

	for ni < len(name) {
		if pi < len(pattern) {
			switch pattern[pi] {
			case '?':
				if name[ni] != '/' {
					pi++
					ni++
					continue
				}
			case '*':
				starPi = pi
				starNi = ni
				pi++
				continue
			default:
				if foldByte(pattern[pi], fold) == foldByte(name[ni], fold) {
					pi++
					ni++
					continue
				}
			}
		}
		if starPi >= 0 && name[starNi] != '/' {
			starNi++
			ni = starNi
			pi = starPi + 1
			continue
		}
		return false
	}
	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}

// MatchAny reports whether name matches any of the given patterns.
func MatchAny(patterns []string, name string, fold bool) bool {
	for _, p := range patterns {
		if MatchWildcard(p, name, fold) {
			return true
		}
	}
	return false
}
