package workflow

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// AllowedExtensions lists the file types the compression service accepts.
var AllowedExtensions = []string{"jpg", "jpeg", "png", "pdf", "docx"}

var allowedPattern = fmt.Sprintf("*.{%s}", strings.Join(AllowedExtensions, ","))

// IsAllowedFileType reports whether the file name ends in an allowed extension, ignoring case.
func IsAllowedFileType(name string) bool {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	match, err := doublestar.Match(allowedPattern, strings.ToLower(base))
	if err != nil {
		// the pattern is static, this never happens
		return false
	}
	return match
}
