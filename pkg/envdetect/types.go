// Package envdetect scans a project root for its language toolchain, the
// way the Planning Coordinator's task Validator picks the right
// build/test command and required environment variables before running a
// completed task's verification step.
package envdetect

import "time"

// EnvironmentProfile describes a project's detected toolchain.
type EnvironmentProfile struct {
	Languages  []Language
	EnvVars    []string
	DetectedAt time.Time
	CacheKey   string
}

// Language is a detected programming language/runtime.
type Language struct {
	Name       string
	Version    string
	Lockfiles  []string
	BuildTools []string
}

// LanguageSignature defines the files that identify a language.
type LanguageSignature struct {
	Lockfiles    []string
	VersionFile  string
	VersionRegex string
}
