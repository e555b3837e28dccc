package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Template names
const (
	SummaryLine   = "summary-line"
	SummaryHeader = "summary-header"
)

// TemplateData holds variables for template rendering.
type TemplateData map[string]string

// GetTemplatePaths returns the search paths for templates
func GetTemplatePaths(templateName string) []string {
	filename := templateName + ".template"
	return []string{
		filepath.Join(".", "templates", filename),
		filepath.Join(".", "config", "templates", filename),
		filepath.Join("/etc", "deplog", "templates", filename),
	}
}

// GetTemplate returns the raw template content by name.
// Templates are loaded from the filesystem in the following order:
// 1. ./templates/<name>.template
// 2. ./config/templates/<name>.template
// 3. /etc/deplog/templates/<name>.template
func GetTemplate(name string) (string, error) {
	if !ValidateTemplate(name) {
		return "", fmt.Errorf("unknown template: %s", name)
	}

	paths := GetTemplatePaths(name)
	for _, path := range paths {
		if content, err := os.ReadFile(path); err == nil {
			return strings.TrimRight(string(content), "\r\n"), nil
		}
	}

	return "", fmt.Errorf("template file not found: %s (searched: %v)", name, paths)
}

// Resolve returns the template file for name when one exists on disk, and
// fallback otherwise.
func Resolve(name, fallback string) string {
	if content, err := GetTemplate(name); err == nil {
		return content
	}
	return fallback
}

// Expand substitutes {{PLACEHOLDER}} variables in tmpl in a single pass, so
// values that themselves look like placeholders are left alone. Unknown
// placeholders are kept verbatim.
//
// Example:
//
//	Expand("*{{ENV}}* runs {{BRANCH}}", TemplateData{"ENV": "staging", "BRANCH": "develop"})
//	// "*staging* runs develop"
func Expand(tmpl string, data TemplateData) string {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, 2*len(keys))
	for _, key := range keys {
		pairs = append(pairs, fmt.Sprintf("{{%s}}", key), data[key])
	}

	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// ValidateTemplate checks if a template name is valid.
func ValidateTemplate(name string) bool {
	validNames := map[string]bool{
		SummaryHeader: true,
		SummaryLine:   true,
	}
	return validNames[name]
}
