package models

// ImportRow is one loosely-typed spreadsheet row, column header to cell value.
// File parsing happens upstream; the engine only sees the extracted mapping.
type ImportRow map[string]string

// ImportCandidate is a partially-populated slot reconciled from one row.
// Fields may be empty when the source column was missing or unrecognized.
type ImportCandidate struct {
	Day        string `json:"day"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	ClassGroup string `json:"class_group"`
	Subject    string `json:"subject"`
	TeacherID  string `json:"teacher_id"`
	Kind       string `json:"kind"`
	// RawTeacher keeps the original free-text teacher cell until resolution.
	RawTeacher string `json:"raw_teacher,omitempty"`
	Resolved   bool   `json:"resolved"`
	SourceRow  int    `json:"source_row"`
}

// ImportFailure records why one candidate was rejected at commit time.
type ImportFailure struct {
	SourceRow int    `json:"source_row"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// ImportReport summarises a bulk import commit.
type ImportReport struct {
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Failures  []ImportFailure `json:"failures,omitempty"`
}
