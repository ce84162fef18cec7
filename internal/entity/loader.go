package entity

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"

	"github.com/halcyonlabs/meridian/internal/interfaces"
	"github.com/halcyonlabs/meridian/internal/models"
)

// registryFile is the on-disk shape of one registry file. TOML and YAML carry
// the same structure:
//
//	[[entities]]
//	id = "AVGO"
//	display_name = "Broadcom"
//	type = "company"
//	aliases = ["Broadcom", "AVGO"]
type registryFile struct {
	Entities []models.EntityRecord `toml:"entities" yaml:"entities"`
}

// LoadDir reads every .toml, .yaml and .yml file in dir and returns the merged
// record list, sorted by id. A missing or empty directory is malformed
// configuration: the correlator cannot run without a knowledge base.
func LoadDir(dir string, logger arbor.ILogger) ([]models.EntityRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read registry directory %s: %v", interfaces.ErrMalformedConfiguration, dir, err)
	}

	var records []models.EntityRecord
	loadedFiles := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".toml" && ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, name)
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read registry file %s: %v", interfaces.ErrMalformedConfiguration, path, err)
		}

		var file registryFile
		if ext == ".toml" {
			err = toml.Unmarshal(content, &file)
		} else {
			err = yaml.Unmarshal(content, &file)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse registry file %s: %v", interfaces.ErrMalformedConfiguration, path, err)
		}

		records = append(records, file.Entities...)
		loadedFiles++

		logger.Debug().
			Str("file", name).
			Int("entities", len(file.Entities)).
			Msg("Loaded entity registry file")
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no entities found in registry directory %s", interfaces.ErrMalformedConfiguration, dir)
	}

	sort.Slice(records, func(a, b int) bool { return records[a].ID < records[b].ID })

	logger.Info().
		Int("files", loadedFiles).
		Int("entities", len(records)).
		Msg("Entity registry loaded")

	return records, nil
}
