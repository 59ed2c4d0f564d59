package personality

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// personaFileExts are the definition file types the loader accepts. JSON is
// a YAML subset, so one decoder covers both.
var personaFileExts = map[string]bool{".yaml": true, ".yml": true, ".json": true}

// LoadDefinitionsFromDirs scans the given directories for persona
// definition files. The filename (without extension) becomes the persona
// id; later directories shadow earlier ones, matching the config loader's
// filesystem-over-embedded rule. Missing directories are skipped;
// unparseable files are warned about and skipped rather than failing the
// whole load.
func LoadDefinitionsFromDirs(dirs []string) (map[string]PersonaDefinition, error) {
	result := make(map[string]PersonaDefinition)
	for _, dir := range dirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading personas dir %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			ext := strings.ToLower(filepath.Ext(entry.Name()))
			if !personaFileExts[ext] {
				continue
			}
			id := strings.TrimSuffix(entry.Name(), ext)
			def, err := loadPersonaDefinition(filepath.Join(dir, entry.Name()))
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: skipping persona %s: %v\n", entry.Name(), err)
				continue
			}
			if strings.TrimSpace(def.Name) == "" {
				def.Name = titleFromID(id)
			}
			result[id] = def
		}
	}
	return result, nil
}

func loadPersonaDefinition(path string) (PersonaDefinition, error) {
	var def PersonaDefinition
	data, err := os.ReadFile(path)
	if err != nil {
		return def, err
	}
	if err := yaml.Unmarshal(data, &def); err != nil {
		return def, err
	}
	return def, nil
}
