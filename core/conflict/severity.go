package conflict

import (
	"fmt"

	"github.com/portlogistics/portplan/core/model"
)

// SeverityPolicy maps conflict codes to severities.
type SeverityPolicy map[string]model.Severity

// DefaultSeverityPolicy blocks on capacity and only warns on crane overlap.
func DefaultSeverityPolicy() SeverityPolicy {
	return SeverityPolicy{
		model.CodeCraneCapacityExceeded: model.SeverityBlocking,
		model.CodeCraneOverlap:          model.SeverityWarning,
	}
}

// NewSeverityPolicy applies overrides on top of the default policy.
func NewSeverityPolicy(overrides map[string]string) (SeverityPolicy, error) {
	p := DefaultSeverityPolicy()
	for code, sev := range overrides {
		if _, ok := p[code]; !ok {
			return nil, fmt.Errorf("unknown conflict code %q", code)
		}
		s := model.Severity(sev)
		if !s.Valid() {
			return nil, fmt.Errorf("unknown severity %q for %s", sev, code)
		}
		p[code] = s
	}
	return p, nil
}

// For returns the severity of code. Unknown codes block.
func (p SeverityPolicy) For(code string) model.Severity {
	if s, ok := p[code]; ok {
		return s
	}
	return model.SeverityBlocking
}
