package version

import "fmt"

// validCharacters is a list of characters valid in the appBuild string
const validCharacters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-"

const (
	appMajor uint = 0
	appMinor uint = 1
	appPatch uint = 0
)

// appBuild is defined as a variable so it can be overridden through the
// -ldflags parameter with go build.
var appBuild string

var version = "" // string used for memoization of version

// Version returns the application version as a properly formed string
func Version() string {
	if version == "" {
		// Start with the major, minor, and patch versions.
		version = fmt.Sprintf("%d.%d.%d", appMajor, appMinor, appPatch)

		// Append build metadata if there is any.
		// Panic if any invalid characters are encountered.
		if appBuild != "" {
			checkAppBuild(appBuild)

			version = fmt.Sprintf("%s-%s", version, appBuild)
		}
	}

	return version
}

// checkAppBuild verifies that appBuild does not contain any characters outside
// of validCharacters. Panics if it does.
func checkAppBuild(appBuild string) {
	for _, r := range appBuild {
		if !containsRune(validCharacters, r) {
			panic(fmt.Errorf("appBuild string (%s) contains forbidden characters. Only alphanumeric characters and dashes are allowed", appBuild))
		}
	}
}

// containsRune checks whether r is contained inside s
func containsRune(s string, r rune) bool {
	for _, sr := range s {
		if sr == r {
			return true
		}
	}

	return false
}
