package outbound

import (
	"reflect"

	"github.com/hull-connectors/planhat/internal/domain/integration"
	"github.com/hull-connectors/planhat/internal/domain/shared"
)

// PatchDetector decides whether a mapped object differs from the remote one
// on any configured field.
type PatchDetector struct {
	settings *integration.ConnectorSettings
}

// NewPatchDetector creates a PatchDetector for the given settings
func NewPatchDetector(settings *integration.ConnectorSettings) *PatchDetector {
	return &PatchDetector{settings: settings}
}

// HasChanges reports whether candidate differs from remote on any field mapped
// for kind. A field counts as changed when the values are not deeply equal, or
// when candidate defines it and remote lacks it. Unmapped fields are ignored.
func (p *PatchDetector) HasChanges(kind integration.ObjectKind, candidate, remote map[string]any) bool {
	for _, path := range p.settings.MappedTargets(kind) {
		want, defined := shared.GetDefined(candidate, path)
		have, present := shared.GetPath(remote, path)

		if !defined {
			continue
		}
		if !present {
			return true
		}
		if !valuesEqual(want, have) {
			return true
		}
	}
	return false
}

// valuesEqual compares decoded JSON values. Numbers are compared as float64
// so that an int written locally equals the float64 decoded from a response.
func valuesEqual(a, b any) bool {
	return reflect.DeepEqual(normalizeNumbers(a), normalizeNumbers(b))
}

func normalizeNumbers(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case []any:
		out := make([]any, len(n))
		for i, item := range n {
			out[i] = normalizeNumbers(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, item := range n {
			out[k] = normalizeNumbers(item)
		}
		return out
	default:
		return v
	}
}
