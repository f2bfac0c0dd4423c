package engine

import (
	"strings"

	"github.com/nexpharm/pharmacy-intel/internal/intel/domain"
)

// NormalizeMedicine is the identity key of a medicine: trimmed and lowercased
func NormalizeMedicine(medicine string) string {
	return strings.ToLower(strings.TrimSpace(medicine))
}

// BuildReorderRequest builds a reorder action for medicine
func BuildReorderRequest(medicine string) domain.ActionRequest {
	return domain.ActionRequest{Kind: domain.ActionReorder, Subject: strings.ToLower(medicine)}
}

// BuildAlternativeRequest builds a substitute lookup for medicine
func BuildAlternativeRequest(medicine string) domain.ActionRequest {
	return domain.ActionRequest{Kind: domain.ActionFindAlternative, Subject: strings.ToLower(medicine)}
}
