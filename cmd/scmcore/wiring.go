package main

import "github.com/google/uuid"

// noopPipelineManager stands in for the real pipeline-placement service
// this core consults but does not own. It reports every pipeline as
// unknown, which is the safe default for a standalone binary with
// nothing behind PipelineManager yet.
type noopPipelineManager struct{}

func (noopPipelineManager) PipelineExists(string) bool { return false }

func (noopPipelineManager) PipelineNodes(string) ([]uuid.UUID, bool) { return nil, false }

// staticLayoutVersions reports a fixed software/metadata layout version
// pair, standing in for the real LayoutVersionManager an SCM build carries.
type staticLayoutVersions struct {
	softwareVersion int
	metadataVersion int
}

func (s staticLayoutVersions) SoftwareLayoutVersion() int { return s.softwareVersion }
func (s staticLayoutVersions) MetadataLayoutVersion() int { return s.metadataVersion }
