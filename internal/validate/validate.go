// Package validate provides syntactic email address validation for the bulk mailer.
package validate

import "regexp"

// minAddressLength is the shortest address the mailer accepts ("a@b.co").
const minAddressLength = 6

// addressPattern matches local-part@domain where the local part uses letters,
// digits, dot, hyphen or underscore, and the domain is one or more labels with
// a final label of at least two letters.
var addressPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+@[A-Za-z0-9-]+(\.[A-Za-z0-9-]+)*\.[A-Za-z]{2,}$`)

// Email reports whether the given address is acceptable for sending.
// The check is purely syntactic; no MX or network verification is done.
func Email(address string) bool {
	if len(address) < minAddressLength {
		return false
	}
	if !printableASCII(address) {
		return false
	}
	return addressPattern.MatchString(address)
}

// printableASCII reports whether s contains only printable ASCII characters
// (0x21 through 0x7E; spaces are not valid inside an address).
func printableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '!' || s[i] > '~' {
			return false
		}
	}
	return true
}
