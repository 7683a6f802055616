package validation

import (
	"testing"
)

func TestValidateGraphType(t *testing.T) {
	tests := []struct {
		name      string
		graphType string
		wantErr   bool
	}{
		// Valid tags
		{"default", "overview", false},
		{"single char", "a", false},
		{"with digit", "callgraph2", false},
		{"with underscore", "call_graph", false},
		{"max length", "abcdefghijklmnopqrstuvwxyz012345", false},

		// Invalid tags - structural and injection attempts
		{"empty", "", true},
		{"colon breaks key format", "over:view", true},
		{"uppercase", "Overview", true},
		{"spaces", "over view", true},
		{"newline injection", "overview\n", true},
		{"shell metachars", "overview;rm", true},
		{"too long", "abcdefghijklmnopqrstuvwxyz0123456", true},
		{"unicode", "overview™", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGraphType(tt.graphType)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateGraphType(%q) error = %v, wantErr %v", tt.graphType, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeGraphType(t *testing.T) {
	tests := []struct {
		name      string
		graphType string
		want      string
		wantErr   bool
	}{
		{"lowercase passthrough", "overview", "overview", false},
		{"uppercase normalized", "OVERVIEW", "overview", false},
		{"mixed case", "OverView", "overview", false},
		{"with spaces trimmed", "  overview  ", "overview", false},
		{"invalid rejected", "over:view", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeGraphType(tt.graphType)
			if (err != nil) != tt.wantErr {
				t.Errorf("SanitizeGraphType(%q) error = %v, wantErr %v", tt.graphType, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("SanitizeGraphType(%q) = %q, want %q", tt.graphType, got, tt.want)
			}
		})
	}
}

func TestValidateDirectory(t *testing.T) {
	tests := []struct {
		name      string
		directory string
		wantErr   bool
	}{
		{"absolute", "/home/dev/project", false},
		{"relative", "./project", false},
		{"with spaces inside", "/home/dev/my project", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"nul byte", "/home/dev\x00/project", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDirectory(tt.directory)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDirectory(%q) error = %v, wantErr %v", tt.directory, err, tt.wantErr)
			}
		})
	}
}

func TestValidateCacheKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"clean repo key", "myrepo-a1b2c3d:overview:f4e5d6c", false},
		{"dirty repo key", "myrepo-a1b2c3d:overview:f4e5d6c-9a8b7c6", false},
		{"non-git key", "myrepo-a1b2c3d:overview:a1b2c3d", false},
		{"empty", "", true},
		{"missing segments", "myrepo-a1b2c3d", true},
		{"one colon only", "myrepo:overview", true},
		{"whitespace", "myrepo a1b:overview:f4e", true},
		{"newline", "myrepo:overview:f4e\n", true},
		{"too long", strings257(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCacheKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCacheKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func strings257() string {
	key := "a:b:"
	for len(key) < 257 {
		key += "x"
	}
	return key
}
