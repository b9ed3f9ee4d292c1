package policies

import "taskforge/internal/types"

// FilePolicy maps file names to their signature handling condition.
// Files without an explicit condition default to the error policy: a
// digest mismatch fails resolution. A missing signature file is never a
// failure under any policy, only a computed mismatch is.
type FilePolicy struct {
	conditions map[string]types.FileCondition
}

func NewFilePolicy(conditions map[string]types.FileCondition) FilePolicy {
	normalized := make(map[string]types.FileCondition, len(conditions))
	for name, condition := range conditions {
		if condition.Signature == "" {
			condition.Signature = types.SignatureError
		}
		normalized[name] = condition
	}
	return FilePolicy{conditions: normalized}
}

// SignaturePolicyFor returns the signature policy for the named file.
func (p FilePolicy) SignaturePolicyFor(fileName string) types.SignaturePolicy {
	if condition, ok := p.conditions[fileName]; ok {
		return condition.Signature
	}
	return types.SignatureError
}
