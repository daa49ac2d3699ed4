package export

import (
	"regexp"
	"strings"
)

// UntitledFilename is used when nothing is left of a title after sanitizing.
const UntitledFilename = "untitled_page"

var (
	illegalFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	separatorRun         = regexp.MustCompile(`[\s_]*_[\s_]*`)
)

// SanitizeFilename makes a page title usable as a file name. Distinct titles
// may map to the same name.
func SanitizeFilename(title string) string {
	name := illegalFilenameChars.ReplaceAllString(title, "_")
	name = separatorRun.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_. ")
	if name == "" {
		return UntitledFilename
	}
	return name
}
