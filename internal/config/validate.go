package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Severity classifies a validation issue.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// Issue is one validation finding. Path is a dotted JSON path into the
// config (e.g. "storage.kind").
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

// supported input extensions, lowercase.
var sourceExts = map[string]bool{
	".csv":  true,
	".xlsx": true,
	".xls":  true,
	".html": true,
	".htm":  true,
}

var storageKinds = map[string]bool{
	"sqlite":   true,
	"postgres": true,
	"mssql":    true,
	"memory":   true,
}

var metricsBackends = map[string]bool{
	"":            true,
	"none":        true,
	"pushgateway": true,
	"datadog":     true,
}

// ValidatePipeline checks a pipeline config for structural problems. It
// returns all findings rather than stopping at the first; the caller decides
// whether warnings are fatal.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue
	errf := func(path, format string, a ...any) {
		issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, a...)})
	}
	warnf := func(path, format string, a ...any) {
		issues = append(issues, Issue{Severity: SeverityWarning, Path: path, Message: fmt.Sprintf(format, a...)})
	}

	if strings.TrimSpace(p.Job) == "" {
		warnf("job", "job name is empty; logs and metrics will use a default")
	}

	if strings.TrimSpace(p.Source.Path) == "" {
		errf("source.path", "source path is required")
	} else {
		ext := strings.ToLower(filepath.Ext(p.Source.Path))
		if !sourceExts[ext] {
			errf("source.path", "unsupported source extension %q", ext)
		}
		if p.Source.Sheet != "" && ext != ".xlsx" && ext != ".xls" {
			warnf("source.sheet", "sheet is only used for spreadsheet sources; ignored for %q", ext)
		}
	}

	kind := strings.TrimSpace(p.Storage.Kind)
	switch {
	case kind == "":
		errf("storage.kind", "storage kind is required")
	case !storageKinds[kind]:
		errf("storage.kind", "unknown storage kind %q", kind)
	case kind != "memory" && strings.TrimSpace(p.Storage.DSN) == "":
		errf("storage.dsn", "dsn is required for storage kind %q", kind)
	}

	if !metricsBackends[strings.TrimSpace(p.Metrics.Backend)] {
		warnf("metrics.backend", "unknown metrics backend %q; metrics will be disabled", p.Metrics.Backend)
	}
	if p.Metrics.PushgatewayURL != "" && p.Metrics.Backend != "pushgateway" {
		warnf("metrics.pushgateway_url", "pushgateway_url is only used with the pushgateway backend")
	}

	return issues
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}
