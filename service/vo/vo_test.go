package vo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageSummary(t *testing.T) {
	s := NewPageSummary()
	require.True(t, s.Add(PageRef{ID: "1", Title: "Root"}))
	require.True(t, s.Add(PageRef{ID: "2", Title: "Child"}))
	require.False(t, s.Add(PageRef{ID: "1", Title: "Renamed"}))
	require.True(t, s.Add(PageRef{ID: "3", Title: "Child"}))

	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Contains("2"))
	assert.False(t, s.Contains("4"))
	assert.Equal(t, []PageRef{
		{ID: "1", Title: "Root"},
		{ID: "2", Title: "Child"},
		{ID: "3", Title: "Child"},
	}, s.Pages())
}

func TestParseJobState(t *testing.T) {
	assert.Equal(t, JobStateRunning, ParseJobState("RUNNING"))
	assert.Equal(t, JobStateComplete, ParseJobState("complete"))
	assert.Equal(t, JobStateFailed, ParseJobState(" FAILED "))
	assert.Equal(t, JobStateQueued, ParseJobState("QUEUED"))
	assert.Equal(t, JobStateUnknown, ParseJobState("ARCHIVING"))
	assert.Equal(t, JobStateUnknown, ParseJobState(""))
}

func TestExportJobDone(t *testing.T) {
	assert.False(t, ExportJob{Progress: 30, State: JobStateRunning}.Done())
	assert.False(t, ExportJob{Progress: 100, State: JobStateRunning}.Done())
	assert.True(t, ExportJob{Progress: 100, State: JobStateComplete}.Done())
	// unknown states are accepted once progress is complete
	assert.True(t, ExportJob{Progress: 100, State: JobStateUnknown}.Done())
}

func TestDocumentID(t *testing.T) {
	assert.Equal(t, "file::shared/a.txt", DocumentID("shared/a.txt"))
	assert.Equal(t, map[string]string{"source_file": "a.txt", "file_type": "txt"},
		DocumentMetadata{SourceFile: "a.txt", FileType: FileTypeTXT}.Map())
}
