// Package artifacts stores the rendered text of diff reports.
//
// Three backends implement xdt.ArtifactStore: a directory on local disk,
// an in-memory map for tests, and an S3 bucket.
package artifacts

import (
	"fmt"
	"strings"
)

// validateName rejects names that could escape the store's namespace.
func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid artifact name %q", name)
	}
	return nil
}
