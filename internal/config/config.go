// Package config defines the JSON ingestion-pipeline configuration and its
// validation.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Pipeline is the top-level configuration for one ingestion pipeline.
type Pipeline struct {
	// Job names the pipeline run; used for log lines and metric tags.
	Job string `json:"job"`

	Source    Source  `json:"source"`
	Reference Ref     `json:"reference"`
	Aliases   Aliases `json:"aliases"`
	Storage   Storage `json:"storage"`
	Ingest    Ingest  `json:"ingest"`
	Metrics   Metrics `json:"metrics"`
}

// Source locates the settlement file to ingest.
type Source struct {
	// Path to the input file. The loader dispatches on the extension
	// (.csv, .xlsx, .xls, .html).
	Path string `json:"path"`

	// Sheet optionally names the worksheet to read from spreadsheet inputs.
	// Empty means the loader's own preference order applies.
	Sheet string `json:"sheet,omitempty"`
}

// Ref locates the optional site reference table used for enrichment.
type Ref struct {
	Path string `json:"path,omitempty"`
}

// Aliases locates an optional JSON file of site/QCA alias overrides. The
// built-in alias tables always apply; the file merges over them.
type Aliases struct {
	Path string `json:"path,omitempty"`
}

// Storage selects the persistence backend.
type Storage struct {
	// Kind is a registered backend name: sqlite, postgres, mssql, memory.
	Kind string `json:"kind"`

	// DSN is the backend connection string. Backends other than memory
	// require it.
	DSN string `json:"dsn,omitempty"`
}

// Ingest holds write-mode settings.
type Ingest struct {
	// Overwrite selects the upsert branch: true replaces rows whose key
	// already exists, false leaves existing rows untouched.
	Overwrite bool `json:"overwrite"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is "pushgateway", "datadog", "none" or empty (disabled).
	Backend string `json:"backend,omitempty"`

	// PushgatewayURL overrides the default gateway address.
	PushgatewayURL string `json:"pushgateway_url,omitempty"`
}

// Load reads and decodes a pipeline config from path.
func Load(path string) (Pipeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var p Pipeline
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Pipeline{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	return p, nil
}
