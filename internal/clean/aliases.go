// Package clean implements value-level cleaning for uploads: site and QCA
// alias resolution, month-format parsing, and numeric coercion. The alias
// tables are read-only data, not behavior — extend them by editing an alias
// file, not this package.
package clean

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Aliases holds the site and QCA alias tables. Keys are compared after
// trim+lowercase; values are the canonical replacements.
type Aliases struct {
	Sites map[string]string `json:"sites"`
	QCAs  map[string]string `json:"qcas"`
}

// DefaultAliases returns the built-in alias tables: known duplicate
// spellings of physical sites and counterparty names, including the
// recurring "cliamte connect" typo seen in real uploads.
func DefaultAliases() Aliases {
	return Aliases{
		Sites: map[string]string{
			"washi1":      "WASHI",
			"washi2":      "WASHI",
			"washi 1":     "WASHI",
			"washi 2":     "WASHI",
			"tx 12":       "TX_12",
			"tx12":        "TX_12",
			"tx-12":       "TX_12",
			"bheemshakti": "BHEEMSHAKTI",
			"bheem shakti": "BHEEMSHAKTI",
		},
		QCAs: map[string]string{
			"cliamte connect": "Climate Connect", // known upload typo
			"climate connect": "Climate Connect",
			"climateconnect":  "Climate Connect",
			"reconnect":       "Reconnect",
			"re connect":      "Reconnect",
			"re-connect":      "Reconnect",
			"manikaran":       "Manikaran",
			"unilink":         "Unilink",
			"uni link":        "Unilink",
			"uni-link":        "Unilink",
		},
	}
}

// LoadAliases reads a JSON alias file and merges it over the defaults, so an
// alias file only needs to carry additions and overrides. An empty path
// returns the defaults unchanged.
func LoadAliases(path string) (Aliases, error) {
	base := DefaultAliases()
	if path == "" {
		return base, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Aliases{}, fmt.Errorf("read aliases: %w", err)
	}
	var extra Aliases
	if err := json.Unmarshal(raw, &extra); err != nil {
		return Aliases{}, fmt.Errorf("parse aliases %s: %w", path, err)
	}
	for k, v := range extra.Sites {
		base.Sites[strings.ToLower(strings.TrimSpace(k))] = v
	}
	for k, v := range extra.QCAs {
		base.QCAs[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return base, nil
}
