package keyregistry

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	dErrors "feedlog/pkg/domain-errors"
)

// Manifest lists the trusted issuer URLs and the JWKS file published for each.
//
//	issuers:
//	  - issuer: https://example.com
//	    jwks_file: keys/example.com.json
type Manifest struct {
	Issuers []ManifestEntry `yaml:"issuers"`
}

type ManifestEntry struct {
	Issuer   string `yaml:"issuer"`
	JWKSFile string `yaml:"jwks_file"`
}

// LoadManifest reads a manifest and the JWKS files it references. Relative
// jwks_file paths resolve against the manifest's directory.
func LoadManifest(path string) ([]IssuerKeys, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid key manifest")
	}

	base := filepath.Dir(path)
	sets := make([]IssuerKeys, 0, len(m.Issuers))
	for _, entry := range m.Issuers {
		if entry.Issuer == "" || entry.JWKSFile == "" {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "manifest entries need issuer and jwks_file")
		}
		file := entry.JWKSFile
		if !filepath.IsAbs(file) {
			file = filepath.Join(base, file)
		}
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read JWKS for %s: %w", entry.Issuer, err)
		}
		keys, err := ParseJWKS(raw, entry.Issuer)
		if err != nil {
			return nil, err
		}
		sets = append(sets, IssuerKeys{Issuer: entry.Issuer, Keys: keys})
	}
	return sets, nil
}
