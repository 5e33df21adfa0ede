package pdfsig

import "strconv"

// CertificationLevel is the DocMDP permission recorded by a certifying
// signature. The zero value is an ordinary approval signature.
type CertificationLevel int

const (
	NotCertified CertificationLevel = iota
	// CertifiedNoChanges forbids any change after signing (P=1).
	CertifiedNoChanges
	// CertifiedFormFilling permits filling form fields and signing (P=2).
	CertifiedFormFilling
	// CertifiedFormFillingAndAnnotations additionally permits annotations (P=3).
	CertifiedFormFillingAndAnnotations
)

// Permission returns the DocMDP /P value, or 0 for approval signatures.
func (l CertificationLevel) Permission() int {
	if l < NotCertified || l > CertifiedFormFillingAndAnnotations {
		return 0
	}
	return int(l)
}

// Valid reports whether l is a known level.
func (l CertificationLevel) Valid() bool {
	return l >= NotCertified && l <= CertifiedFormFillingAndAnnotations
}

func (l CertificationLevel) String() string {
	switch l {
	case NotCertified:
		return "not-certified"
	case CertifiedNoChanges:
		return "no-changes"
	case CertifiedFormFilling:
		return "form-filling"
	case CertifiedFormFillingAndAnnotations:
		return "form-filling-and-annotations"
	default:
		return "level(" + strconv.Itoa(int(l)) + ")"
	}
}

// ParseCertificationLevel is the inverse of String.
func ParseCertificationLevel(s string) (CertificationLevel, bool) {
	for l := NotCertified; l <= CertifiedFormFillingAndAnnotations; l++ {
		if l.String() == s {
			return l, true
		}
	}
	return NotCertified, false
}

// levelFromPermission maps a DocMDP /P value; readers treat a missing /P as 2.
func levelFromPermission(p int64) CertificationLevel {
	switch p {
	case 1:
		return CertifiedNoChanges
	case 3:
		return CertifiedFormFillingAndAnnotations
	default:
		return CertifiedFormFilling
	}
}
