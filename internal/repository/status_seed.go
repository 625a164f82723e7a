package repository

import (
	"context"

	"pipelineiq-backend/internal/domain"
)

// PipelineTemplate is a named, ordered stage set that can replace the
// workspace's pipeline in one step.
type PipelineTemplate struct {
	Name   string
	Stages []SaveStatusInput
}

// PipelineTemplates are the built-in stage sets offered during workspace
// setup. Custom pipelines go through the status CRUD or the bulk replace.
var PipelineTemplates = []PipelineTemplate{
	{
		Name: "standard",
		Stages: []SaveStatusInput{
			{Name: "New Lead", Color: "#3B82F6", SortOrder: 1, Lifecycle: domain.StageNew},
			{Name: "Contacted", Color: "#8B5CF6", SortOrder: 2, Lifecycle: domain.StageInProgress},
			{Name: "Showing Homes", Color: "#F59E0B", SortOrder: 3, Lifecycle: domain.StageInProgress},
			{Name: "Under Contract", Color: "#F97316", SortOrder: 4, Lifecycle: domain.StageInProgress},
			{Name: "Closed Won", Color: "#22C55E", SortOrder: 5, Lifecycle: domain.StageClosed},
			{Name: "Archived", Color: "#6B7280", SortOrder: 6, Lifecycle: domain.StageDead},
		},
	},
	{
		Name: "rental",
		Stages: []SaveStatusInput{
			{Name: "Inquiry", Color: "#3B82F6", SortOrder: 1, Lifecycle: domain.StageNew},
			{Name: "Touring", Color: "#F59E0B", SortOrder: 2, Lifecycle: domain.StageInProgress},
			{Name: "Application", Color: "#F97316", SortOrder: 3, Lifecycle: domain.StageInProgress},
			{Name: "Leased", Color: "#22C55E", SortOrder: 4, Lifecycle: domain.StageClosed},
			{Name: "Lost", Color: "#6B7280", SortOrder: 5, Lifecycle: domain.StageDead},
		},
	},
}

// FindPipelineTemplate looks a template up by name.
func FindPipelineTemplate(name string) (PipelineTemplate, bool) {
	for _, t := range PipelineTemplates {
		if t.Name == name {
			return t, true
		}
	}
	return PipelineTemplate{}, false
}

// SeedDefaults installs the standard template when the workspace has no
// statuses yet.
func (r StatusRepository) SeedDefaults(ctx context.Context) error {
	var count int64
	if err := r.DB.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM pipeline_statuses WHERE deleted_at IS NULL
	`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, stage := range PipelineTemplates[0].Stages {
		if _, err := r.Create(ctx, stage); err != nil {
			return err
		}
	}
	return nil
}
