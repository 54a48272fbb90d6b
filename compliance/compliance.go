package compliance

import (
	"fmt"
	"strings"
)

// ComplianceMode selects how strictly a BOM is checked before deployment.
//
// Permissive mode only requires that documents describing models carry a
// signature. Strict mode additionally requires the latest signature to verify.
type ComplianceMode int

const (
	Permissive ComplianceMode = iota
	Strict
)

func (m ComplianceMode) String() string {
	switch m {
	case Permissive:
		return "permissive"
	case Strict:
		return "strict"
	default:
		return fmt.Sprintf("ComplianceMode(%d)", int(m))
	}
}

// ParseMode accepts "permissive" (or "") and "strict", case-insensitively.
func ParseMode(s string) (ComplianceMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "permissive":
		return Permissive, nil
	case "strict":
		return Strict, nil
	default:
		return Permissive, fmt.Errorf("unknown compliance mode %q (want permissive or strict)", s)
	}
}
