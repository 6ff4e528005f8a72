package generator

import (
	"net/http"

	"go.uber.org/zap"
)

// Form part names and the success body field understood by the service.
const (
	FieldCode      = "code"
	FieldFile      = "file"
	FieldTestCases = "test_cases"
)

// File is an uploaded source file.
type File struct {
	Name    string
	Content []byte
}

// Request is one submission. At least one of Code or File is set.
type Request struct {
	Code string
	File *File
}

// Result is the decoded success body.
type Result struct {
	TestCases *string `json:"test_cases"`
	RequestID string  `json:"-"`
}

// Text returns the generated test cases.
func (r *Result) Text() string {
	if r == nil || r.TestCases == nil {
		return ""
	}
	return *r.TestCases
}

// Config holds configuration for the generator client.
type Config struct {
	Endpoint   string
	HTTPClient *http.Client // nil uses a client without timeout
	UserAgent  string
	Logger     *zap.Logger
}
