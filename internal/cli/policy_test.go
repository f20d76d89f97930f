package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timeax/servicegraph/internal/policy"
)

func TestPolicyCompileCUE(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rules.cue", `
#cap: {op: "max_count", severity: *"error" | "warning", ...}

policies: {
	"one-service": #cap & {count: 1}
	"same-platform": {
		op:         "all_equal"
		projection: "service.platform_id"
		severity:   "warning"
	}
}
`)

	out, err := execute(t, "policy", "compile", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Compiled 2 rule(s)")
	assert.Contains(t, out, "one-service: max_count service.id (visible_group, error)")
	assert.Contains(t, out, "same-platform: all_equal service.platform_id (visible_group, warning)")
}

func TestPolicyCompileYAMLJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rules.yml", `
policies:
  - id: h1
    op: all_equal
    projection: service.handler_id
    filter:
      handler_id: [h-1]
`)

	out, err := execute(t, "--format", "json", "policy", "compile", path)
	require.NoError(t, err)

	var compiled policy.Compiled
	resp := decodeResponse(t, out, &compiled)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, compiled.Rules, 1)
	assert.Equal(t, policy.OpAllEqual, compiled.Rules[0].Op)
	assert.Equal(t, []string{"h-1"}, compiled.Rules[0].Filter.HandlerIDs)
}

func TestPolicyCompileRejectedRules(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rules.json", `[
		{"id": "ok", "op": "unique"},
		{"id": "bad-op", "op": "most"}
	]`)

	out, err := execute(t, "policy", "compile", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 rule(s) rejected")
	assert.Contains(t, out, "Compiled 1 rule(s)")
	assert.Contains(t, out, "! error:")
	assert.Contains(t, out, "unknown op")
}

func TestPolicyCompileSourceErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "policy", "compile", writeFile(t, dir, "broken.cue", "policies: {"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to compile policies")

	_, err = execute(t, "policy", "compile", filepath.Join(dir, "missing.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load policies")
}
