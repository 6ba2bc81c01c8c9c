package params

import (
	"golang.org/x/mod/semver"

	"github.com/samber/oops"
)

// SupportedMajorVersion is the params_version major this build understands.
// Minor and patch drift within the major is accepted.
const SupportedMajorVersion = "v3"

// CheckVersion validates the params_version field of a parameter document.
func CheckVersion(version string) error {
	if version == "" {
		return oops.Errorf("params_version is missing")
	}

	// semver requires the "v" prefix the document does not carry
	canonical := "v" + version

	if !semver.IsValid(canonical) {
		return oops.
			With("params_version", version).
			Errorf("params_version %q is not a valid semantic version", version)
	}

	if semver.Major(canonical) != SupportedMajorVersion {
		return oops.
			With("params_version", version).
			With("supported", SupportedMajorVersion).
			Errorf("unsupported params_version %q, this build understands major version %s", version, SupportedMajorVersion)
	}

	return nil
}
