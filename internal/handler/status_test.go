package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelineiq-backend/internal/domain"
)

func TestStatusRequestValidate(t *testing.T) {
	req := statusRequest{Name: "Under Contract", Color: "#F97316", SortOrder: 3, Lifecycle: "in_progress"}
	in, msg := req.validate()
	require.Empty(t, msg)
	assert.Equal(t, domain.StageInProgress, in.Lifecycle)

	_, msg = statusRequest{Lifecycle: "in_progress"}.validate()
	assert.Equal(t, "name is required", msg)

	_, msg = statusRequest{Name: "x", Lifecycle: "won"}.validate()
	assert.Equal(t, "invalid lifecycleStage", msg)

	_, msg = statusRequest{Name: "x", Lifecycle: "new", Color: "orange"}.validate()
	assert.Contains(t, msg, "hex")
}

func TestValidHexColor(t *testing.T) {
	assert.True(t, validHexColor("#3B82F6"))
	assert.True(t, validHexColor("#abcdef"))
	assert.False(t, validHexColor("3B82F6"))
	assert.False(t, validHexColor("#3B82F"))
	assert.False(t, validHexColor("#3B82FG"))
}

func TestValidatePipelineRequiresTwoStages(t *testing.T) {
	_, msg := validatePipeline(nil)
	assert.Equal(t, "a custom pipeline needs at least two stages", msg)

	_, msg = validatePipeline([]statusRequest{
		{Name: "Only Stage", Lifecycle: "new"},
	})
	assert.Equal(t, "a custom pipeline needs at least two stages", msg)

	ins, msg := validatePipeline([]statusRequest{
		{Name: "Inquiry", Lifecycle: "new", SortOrder: 1},
		{Name: "Leased", Lifecycle: "closed", SortOrder: 2},
	})
	require.Empty(t, msg)
	require.Len(t, ins, 2)
	assert.Equal(t, domain.StageClosed, ins[1].Lifecycle)

	// a bad stage inside the set fails the whole replace
	_, msg = validatePipeline([]statusRequest{
		{Name: "Inquiry", Lifecycle: "new"},
		{Name: "", Lifecycle: "closed"},
	})
	assert.Equal(t, "name is required", msg)
}
