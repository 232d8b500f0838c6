package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobsCommandText(t *testing.T) {
	stdout, _, err := execute(NewJobsCommand(&RootOptions{Format: "text"}))
	require.NoError(t, err)

	assert.Contains(t, stdout, "Job types:\n")
	assert.Contains(t, stdout, "  db_fuel/active_record/upsert\n")
	assert.Contains(t, stdout, "  db_fuel/dbee/range\n")
	assert.Contains(t, stdout, "Transformer types:\n")
	assert.Contains(t, stdout, "  r/value/static\n")
}

func TestJobsCommandJSON(t *testing.T) {
	stdout, _, err := execute(NewJobsCommand(&RootOptions{Format: "json"}))
	require.NoError(t, err)

	var resp struct {
		Data Catalog `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Contains(t, resp.Data.JobTypes, "db_fuel/active_record/update_all")
	assert.Contains(t, resp.Data.JobTypes, "b/value/static")
	assert.Contains(t, resp.Data.TransformerTypes, "r/value/now")
	assert.IsIncreasing(t, resp.Data.JobTypes)
}
