package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_CleanConfig(t *testing.T) {
	cfg := &Config{
		Tasks: map[string]TaskDef{
			"build": {Command: "make build", Deps: []string{"gen"}},
			"gen":   {Call: "codegen", Args: []string{"api.proto"}},
			"all":   {Deps: []string{"build"}},
		},
	}

	result := Validate(cfg, nil)
	assert.Empty(t, result.Issues)
	assert.False(t, result.HasErrors())
}

func TestValidate_ConflictingActionVariants(t *testing.T) {
	cfg := &Config{
		Tasks: map[string]TaskDef{
			"bad": {Command: "make", Argv: []string{"make"}},
		},
	}

	result := Validate(cfg, nil)
	require.True(t, result.HasErrors())
	errs := result.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "tasks.bad", errs[0].Field)
	assert.Contains(t, errs[0].Message, "mutually exclusive")
}

func TestValidate_Warnings(t *testing.T) {
	cfg := &Config{
		Settings: Settings{Jobs: -2},
		Tasks: map[string]TaskDef{
			"a": {Command: "true", Args: []string{"ignored"}},
			"b": {Env: []string{"K=V"}},
			"c": {Command: "true", Fingerprint: true},
		},
	}

	result := Validate(cfg, nil)
	assert.False(t, result.HasErrors(), "warnings alone must not block the run")

	fields := make([]string, 0, len(result.Issues))
	for _, issue := range result.Issues {
		assert.Equal(t, SeverityWarning, issue.Severity)
		fields = append(fields, issue.Field)
	}
	assert.Equal(t, []string{
		"settings.jobs",
		"tasks.a.args",
		"tasks.b.env",
		"tasks.c.fingerprint",
	}, fields)
}

func TestValidate_NegativeRetries(t *testing.T) {
	cfg := &Config{
		Tasks: map[string]TaskDef{
			"a": {Command: "true", Retries: -1},
		},
	}

	result := Validate(cfg, nil)
	require.True(t, result.HasErrors())
	assert.Equal(t, "tasks.a.retries", result.Errors()[0].Field)
}

func TestValidate_UnknownKeys(t *testing.T) {
	path := writeTaskfile(t, t.TempDir(), `
[settings]
jbos = 4

[tasks.build]
command = "make"
cmd = "typo"
`)

	cfg, md, err := LoadFromFile(path)
	require.NoError(t, err)

	result := Validate(cfg, &md)
	assert.False(t, result.HasErrors())

	fields := make([]string, 0, len(result.Issues))
	for _, issue := range result.Issues {
		fields = append(fields, issue.Field)
	}
	assert.ElementsMatch(t, []string{"settings.jbos", "tasks.build.cmd"}, fields)
}
