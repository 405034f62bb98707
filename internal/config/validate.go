package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// ValidationSeverity indicates whether a validation issue is an error or warning.
type ValidationSeverity string

const (
	// SeverityError indicates a fatal validation issue; the taskfile is unusable.
	SeverityError ValidationSeverity = "error"
	// SeverityWarning indicates an informational validation issue; the
	// taskfile works but may have problems.
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationIssue represents a single validation finding.
type ValidationIssue struct {
	Severity ValidationSeverity
	Field    string // dotted path, e.g. "tasks.build.command"
	Message  string
}

// ValidationResult holds all validation findings.
type ValidationResult struct {
	Issues []ValidationIssue
}

// HasErrors returns true if any issue has error severity.
func (vr *ValidationResult) HasErrors() bool {
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only error-severity issues.
func (vr *ValidationResult) Errors() []ValidationIssue {
	var errs []ValidationIssue
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityError {
			errs = append(errs, issue)
		}
	}
	return errs
}

// String returns a multi-line human-readable summary of all findings.
func (vr *ValidationResult) String() string {
	var b strings.Builder
	for _, issue := range vr.Issues {
		fmt.Fprintf(&b, "%s: %s: %s\n", issue.Severity, issue.Field, issue.Message)
	}
	return b.String()
}

// Validate checks the taskfile for structural problems the graph builder
// cannot see: conflicting action variants, suspicious argument combinations,
// and unknown TOML keys. Referential problems (duplicate names, dangling
// deps, cycles) are the graph builder's job; the name table in TOML already
// rules out duplicates.
//
// All issues are collected in one pass so the user sees the complete picture.
func Validate(cfg *Config, md *toml.MetaData) *ValidationResult {
	result := &ValidationResult{}

	if cfg.Settings.Jobs < 0 {
		result.Issues = append(result.Issues, ValidationIssue{
			Severity: SeverityWarning,
			Field:    "settings.jobs",
			Message:  fmt.Sprintf("negative jobs value %d is treated as one worker per CPU", cfg.Settings.Jobs),
		})
	}

	names := make([]string, 0, len(cfg.Tasks))
	for name := range cfg.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		def := cfg.Tasks[name]
		field := "tasks." + name

		variants := 0
		if def.Command != "" {
			variants++
		}
		if len(def.Argv) > 0 {
			variants++
		}
		if def.Call != "" {
			variants++
		}
		if variants > 1 {
			result.Issues = append(result.Issues, ValidationIssue{
				Severity: SeverityError,
				Field:    field,
				Message:  "command, argv, and call are mutually exclusive",
			})
		}

		if len(def.Args) > 0 && def.Call == "" {
			result.Issues = append(result.Issues, ValidationIssue{
				Severity: SeverityWarning,
				Field:    field + ".args",
				Message:  "args is only used with call; it is ignored here",
			})
		}
		if len(def.Env) > 0 && def.Command == "" && len(def.Argv) == 0 {
			result.Issues = append(result.Issues, ValidationIssue{
				Severity: SeverityWarning,
				Field:    field + ".env",
				Message:  "env is only used with command or argv; it is ignored here",
			})
		}
		if def.Retries < 0 {
			result.Issues = append(result.Issues, ValidationIssue{
				Severity: SeverityError,
				Field:    field + ".retries",
				Message:  fmt.Sprintf("retries must not be negative (got %d)", def.Retries),
			})
		}
		if def.Fingerprint && len(def.Inputs) == 0 {
			result.Issues = append(result.Issues, ValidationIssue{
				Severity: SeverityWarning,
				Field:    field + ".fingerprint",
				Message:  "fingerprint without inputs only hashes the action descriptor",
			})
		}
	}

	if md != nil {
		for _, key := range md.Undecoded() {
			result.Issues = append(result.Issues, ValidationIssue{
				Severity: SeverityWarning,
				Field:    key.String(),
				Message:  "unknown key",
			})
		}
	}

	return result
}
