package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validScenario = `
name: valid
description: "receipt lookup"
given:
  - step: receipt
    args: { event_id: "evt-1", status: IO_NOTIFIED }
when:
  - step: get_receipt
    args: { event_id: "evt-1" }
then:
  - step: status
    args: { code: 200 }
`

func TestParseScenario_Valid(t *testing.T) {
	s, err := ParseScenario([]byte(validScenario))
	require.NoError(t, err)
	assert.Equal(t, "valid", s.Name)
	require.Len(t, s.Given, 1)
	assert.Equal(t, "receipt", s.Given[0].Step)
	assert.Equal(t, "IO_NOTIFIED", s.Given[0].Args["status"])
	assert.Equal(t, 200, s.Then[0].Args["code"])
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    validScenario + "retries: 3\n",
			wantErr: "field retries not found",
		},
		{
			name: "missing name",
			yaml: `
description: d
when: [{ step: get_receipt, args: { event_id: e } }]
then: [{ step: status, args: { code: 200 } }]
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			yaml: `
name: n
when: [{ step: get_receipt, args: { event_id: e } }]
then: [{ step: status, args: { code: 200 } }]
`,
			wantErr: "description is required",
		},
		{
			name: "missing when",
			yaml: `
name: n
description: d
then: [{ step: status, args: { code: 200 } }]
`,
			wantErr: "when list is required",
		},
		{
			name: "missing then",
			yaml: `
name: n
description: d
when: [{ step: get_receipt, args: { event_id: e } }]
`,
			wantErr: "then list is required",
		},
		{
			name: "unknown step",
			yaml: `
name: n
description: d
when: [{ step: get_invoice, args: { id: e } }]
then: [{ step: status, args: { code: 200 } }]
`,
			wantErr: `unknown step "get_invoice"`,
		},
		{
			name: "step in wrong section",
			yaml: `
name: n
description: d
when: [{ step: receipt, args: { event_id: e, status: s } }]
then: [{ step: status, args: { code: 200 } }]
`,
			wantErr: `step "receipt" belongs in given`,
		},
		{
			name: "missing argument",
			yaml: `
name: n
description: d
when: [{ step: get_receipt_by_iuv, args: { org_code: o } }]
then: [{ step: status, args: { code: 200 } }]
`,
			wantErr: "argument iuv is required",
		},
		{
			name: "unknown argument",
			yaml: `
name: n
description: d
when: [{ step: get_receipt, args: { event_id: e, eventid: e } }]
then: [{ step: status, args: { code: 200 } }]
`,
			wantErr: "unknown argument eventid",
		},
		{
			name:    "bad timeout",
			yaml:    validScenario + "timeout: soon\n",
			wantErr: "timeout",
		},
		{
			name:    "negative timeout",
			yaml:    validScenario + "timeout: -1s\n",
			wantErr: "timeout must be positive",
		},
		{
			name:    "unknown assertion",
			yaml:    validScenario + "assertions: [{ type: trace_absent }]\n",
			wantErr: `unknown assertion type "trace_absent"`,
		},
		{
			name:    "absent without id",
			yaml:    validScenario + "assertions: [{ type: absent, container: receipts }]\n",
			wantErr: "container and id are required",
		},
		{
			name:    "trace_order without steps",
			yaml:    validScenario + "assertions: [{ type: trace_order }]\n",
			wantErr: "steps list is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenarios_FilterAndOrder(t *testing.T) {
	dir := t.TempDir()
	write := func(file, name string) {
		content := "name: " + name + `
description: d
when: [{ step: get_receipt, args: { event_id: e } }]
then: [{ step: status, args: { code: 404 } }]
`
		require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644))
	}
	write("b.yaml", "receipt_b")
	write("a.yml", "receipt_a")
	write("c.yaml", "cart_c")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	all, err := LoadScenarios(dir, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "receipt_a", all[0].Name)
	assert.Equal(t, "receipt_b", all[1].Name)
	assert.Equal(t, "cart_c", all[2].Name)

	receipts, err := LoadScenarios(dir, "receipt")
	require.NoError(t, err)
	assert.Len(t, receipts, 2)
}

func TestLoadScenarios_DuplicateNames(t *testing.T) {
	dir := t.TempDir()
	content := []byte(validScenario)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.yaml"), content, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "two.yaml"), content, 0o644))

	_, err := LoadScenarios(dir, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scenario name "valid" already used`)
}

func TestStepNames(t *testing.T) {
	when := StepNames(SectionWhen)
	assert.Len(t, when, 9)
	assert.Contains(t, when, "get_cart_receipt_by_iuv")
	assert.NotContains(t, when, "receipt")

	assert.Len(t, StepNames(SectionGiven), 9)
	assert.Len(t, StepNames(SectionThen), 9)
}
