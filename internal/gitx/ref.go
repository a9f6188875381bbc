package gitx

import (
	"fmt"
	"strings"
)

// ValidateRef checks that ref is safe to pass to git as a branch or remote
// name. refType is used in error messages only.
func ValidateRef(ref, refType string) error {
	return validateGitRef(ref, refType)
}

func validateGitRef(ref, refType string) error {
	if ref == "" {
		return fmt.Errorf("%s name is empty", refType)
	}
	if strings.HasPrefix(ref, "-") {
		return fmt.Errorf("%s name %q must not start with '-'", refType, ref)
	}
	if strings.HasPrefix(ref, ".") || strings.HasSuffix(ref, ".") || strings.HasSuffix(ref, "/") {
		return fmt.Errorf("%s name %q must not start or end with '.' or end with '/'", refType, ref)
	}
	if strings.Contains(ref, "..") || strings.Contains(ref, "@{") || strings.Contains(ref, "//") {
		return fmt.Errorf("%s name %q contains an invalid sequence", refType, ref)
	}
	if strings.HasSuffix(ref, ".lock") {
		return fmt.Errorf("%s name %q must not end with .lock", refType, ref)
	}
	for _, r := range ref {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%s name %q contains a control character", refType, ref)
		}
		if strings.ContainsRune(" ~^:?*[\\;|&$`<>()'\"!#", r) {
			return fmt.Errorf("%s name %q contains invalid character %q", refType, ref, r)
		}
	}
	return nil
}
