package sdk

import (
	"strings"

	"github.com/blang/semver"
)

// ResolveTargetVersion selects the runtime version to provision for a
// project that declares a major.minor requirement.
//
// Only installed SDKs whose resolved version starts with exactly
// required + "." are candidates, so "3.1" never matches "3.10.x".
// Among the candidates the maximum by semantic-version ordering wins
// ("3.1.9" < "3.1.10"). A false result means nothing installed
// satisfies the requirement; callers report that, it is not an error.
func ResolveTargetVersion(required string, installed []InstalledSDK) (semver.Version, bool) {
	prefix := required + "."

	var best semver.Version
	var found bool
	for _, s := range installed {
		if s.Version == nil {
			continue
		}
		if !strings.HasPrefix(s.Version.String(), prefix) {
			continue
		}
		if !found || s.Version.GT(best) {
			best = *s.Version
			found = true
		}
	}
	return best, found
}
