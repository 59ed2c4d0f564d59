package envdetect

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Detector scans a project root and builds its language profile.
type Detector struct {
	rootPath string
	cache    *Cache
}

// NewDetector creates a detector rooted at rootPath, caching results under
// rootPath/.loom/cache.
func NewDetector(rootPath string) *Detector {
	return &Detector{
		rootPath: rootPath,
		cache:    NewCache(filepath.Join(rootPath, ".loom", "cache")),
	}
}

var languageSignatures = map[string]LanguageSignature{
	"go": {
		Lockfiles:    []string{"go.mod", "go.sum"},
		VersionFile:  "go.mod",
		VersionRegex: `go\s+(\d+\.\d+)`,
	},
	"node": {
		Lockfiles:   []string{"package.json", "package-lock.json"},
		VersionFile: ".nvmrc",
	},
	"rust": {
		Lockfiles:   []string{"Cargo.toml", "Cargo.lock"},
		VersionFile: "rust-toolchain.toml",
	},
	"python": {
		Lockfiles:   []string{"pyproject.toml", "requirements.txt", "Pipfile"},
		VersionFile: ".python-version",
	},
}

var buildToolsByLanguage = map[string][]string{
	"go":     {"go"},
	"node":   {"npm", "yarn", "pnpm"},
	"rust":   {"cargo"},
	"python": {"pip", "poetry"},
}

// Detect walks the project root and returns its language profile, using the
// on-disk cache when the lockfile set is unchanged.
func (d *Detector) Detect() (*EnvironmentProfile, error) {
	cacheKey := d.computeCacheKey()
	if cached, ok := d.cache.Get(cacheKey); ok {
		return cached, nil
	}

	profile := &EnvironmentProfile{
		Languages:  []Language{},
		EnvVars:    []string{},
		DetectedAt: time.Now(),
		CacheKey:   cacheKey,
	}

	for name, sig := range languageSignatures {
		if !d.scanForSignature(sig) {
			continue
		}
		profile.Languages = append(profile.Languages, Language{
			Name:       name,
			Version:    d.extractVersion(sig),
			Lockfiles:  d.findFiles(sig.Lockfiles),
			BuildTools: buildToolsByLanguage[name],
		})
	}

	if err := d.cache.Set(cacheKey, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (d *Detector) scanForSignature(sig LanguageSignature) bool {
	for _, file := range sig.Lockfiles {
		if fileExists(filepath.Join(d.rootPath, file)) {
			return true
		}
	}
	return false
}

func (d *Detector) extractVersion(sig LanguageSignature) string {
	if sig.VersionFile == "" {
		return "latest"
	}
	versionPath := filepath.Join(d.rootPath, sig.VersionFile)
	if !fileExists(versionPath) {
		return "latest"
	}
	data, err := os.ReadFile(versionPath)
	if err != nil {
		return "latest"
	}
	if sig.VersionRegex != "" {
		re := regexp.MustCompile(sig.VersionRegex)
		if matches := re.FindStringSubmatch(string(data)); len(matches) > 1 {
			return matches[1]
		}
	}
	if version := strings.TrimSpace(string(data)); version != "" {
		return version
	}
	return "latest"
}

func (d *Detector) findFiles(files []string) []string {
	found := []string{}
	for _, file := range files {
		if fileExists(filepath.Join(d.rootPath, file)) {
			found = append(found, file)
		}
	}
	return found
}

func (d *Detector) computeCacheKey() string {
	lockfiles := []string{
		"go.mod", "go.sum",
		"package.json", "package-lock.json",
		"Cargo.toml", "Cargo.lock",
		"pyproject.toml", "requirements.txt", "Pipfile",
	}
	return computeCacheKey(d.rootPath, lockfiles)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
