package fiscal

// DIAN weight table for the NIT verification digit, applied right to left.
// Numbers longer than the table repeat the last weight for the extra
// leading digits.
var dvWeights = []int{3, 7, 13, 17, 19, 23, 29, 37, 41, 43, 47, 59, 67, 71}

// Calculator computes verification digits for checksum-bearing fiscal
// identifiers. Which document types carry a checksum is configuration,
// not a hardcoded constant: the catalog ids differ between deployments.
type Calculator struct {
	checksumTypes map[uint]struct{}
}

// NewCalculator builds a Calculator that treats the given document-type ids
// as checksum-bearing (NIT-class) identifiers.
func NewCalculator(checksumTypeIDs []uint) *Calculator {
	types := make(map[uint]struct{}, len(checksumTypeIDs))
	for _, id := range checksumTypeIDs {
		types[id] = struct{}{}
	}
	return &Calculator{checksumTypes: types}
}

// IsChecksumType reports whether documentTypeID denotes an identifier class
// that carries a verification digit.
func (c *Calculator) IsChecksumType(documentTypeID uint) bool {
	_, ok := c.checksumTypes[documentTypeID]
	return ok
}

// VerificationDigit returns the verification digit for rawNumber when
// documentTypeID denotes a checksum-bearing class. The second return value
// is false when no digit applies: non-checksum document types, and numbers
// with no digits at all. It never errors; length and format validation
// belong to the caller.
func (c *Calculator) VerificationDigit(documentTypeID uint, rawNumber string) (string, bool) {
	if !c.IsChecksumType(documentTypeID) {
		return "", false
	}
	digits := stripNonDigits(rawNumber)
	if digits == "" {
		return "", false
	}
	return ComputeDV(digits), true
}

// ComputeDV applies the official DIAN modulus-11 weighted sum over a digit
// string. Deterministic and storage-free so audits can re-derive any stored
// digit from the raw number alone.
func ComputeDV(digits string) string {
	sum := 0
	pos := 0
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		weight := dvWeights[len(dvWeights)-1]
		if pos < len(dvWeights) {
			weight = dvWeights[pos]
		}
		sum += d * weight
		pos++
	}
	r := sum % 11
	if r == 0 || r == 1 {
		return string(rune('0' + r))
	}
	return string(rune('0' + (11 - r)))
}

func stripNonDigits(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}
