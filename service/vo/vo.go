package vo

import "strings"

// PageRef identifies a page of the content service. Identity is ID, the title
// is display only and may repeat across pages.
type PageRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Visit is one encounter of a page while walking the hierarchy.
type Visit struct {
	Page  PageRef `json:"page"`
	Depth int     `json:"depth"`
}

// PageSummary is an insertion ordered id -> title mapping. The first title
// stored for an id wins.
type PageSummary struct {
	ids    []string
	titles map[string]string
}

func NewPageSummary() *PageSummary {
	return &PageSummary{titles: map[string]string{}}
}

// Add records the page and reports whether it was new.
func (s *PageSummary) Add(page PageRef) bool {
	if _, ok := s.titles[page.ID]; ok {
		return false
	}
	s.ids = append(s.ids, page.ID)
	s.titles[page.ID] = page.Title
	return true
}

func (s *PageSummary) Contains(id string) bool {
	_, ok := s.titles[id]
	return ok
}

func (s *PageSummary) Len() int {
	return len(s.ids)
}

// Pages returns the recorded pages in insertion order.
func (s *PageSummary) Pages() []PageRef {
	pages := make([]PageRef, len(s.ids))
	for i, id := range s.ids {
		pages[i] = PageRef{ID: id, Title: s.titles[id]}
	}
	return pages
}

type JobState string

const (
	JobStateQueued   JobState = "QUEUED"
	JobStateRunning  JobState = "RUNNING"
	JobStateComplete JobState = "COMPLETE"
	JobStateFailed   JobState = "FAILED"
	JobStateUnknown  JobState = "UNKNOWN"
)

// ParseJobState maps a server reported state onto the known states, anything
// unrecognised becomes JobStateUnknown.
func ParseJobState(s string) JobState {
	switch JobState(strings.ToUpper(strings.TrimSpace(s))) {
	case JobStateQueued:
		return JobStateQueued
	case JobStateRunning:
		return JobStateRunning
	case JobStateComplete:
		return JobStateComplete
	case JobStateFailed:
		return JobStateFailed
	default:
		return JobStateUnknown
	}
}

// ExportJob is the state of a single page export attempt.
type ExportJob struct {
	PageID    string   `json:"pageId"`
	TaskID    string   `json:"taskId"`
	Progress  int      `json:"progress"`
	State     JobState `json:"state"`
	RawState  string   `json:"rawState,omitempty"`
	ResultURL string   `json:"resultUrl,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// Done reports whether the job reached the success condition. Any state other
// than RUNNING counts once progress hits 100.
func (j ExportJob) Done() bool {
	return j.Progress == 100 && j.State != JobStateRunning
}

type FileType string

const (
	FileTypeTXT      FileType = "txt"
	FileTypePDF      FileType = "pdf"
	FileTypeMarkdown FileType = "md"
	FileTypeHTML     FileType = "html"
)

// DocumentIDPrefix prefixes the file path to form a document id.
const DocumentIDPrefix = "file::"

type DocumentMetadata struct {
	SourceFile string   `json:"source_file"`
	FileType   FileType `json:"file_type"`
}

// Document is a record of the ingestion pipeline.
type Document struct {
	ID       string           `json:"id"`
	Text     string           `json:"text"`
	Metadata DocumentMetadata `json:"metadata"`
}

func DocumentID(path string) string {
	return DocumentIDPrefix + path
}

// Map returns the metadata as stored in the vector store.
func (m DocumentMetadata) Map() map[string]string {
	return map[string]string{
		"source_file": m.SourceFile,
		"file_type":   string(m.FileType),
	}
}
