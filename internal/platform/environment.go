package platform

import "fmt"

// UnsupportedEnvironmentError reports that the host lacks a capability the
// caller needs, such as a capture device or a clipboard.
type UnsupportedEnvironmentError struct {
	Feature string
	Detail  string
}

func (e *UnsupportedEnvironmentError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s is not available in this environment", e.Feature)
	}
	return fmt.Sprintf("%s is not available in this environment: %s", e.Feature, e.Detail)
}
