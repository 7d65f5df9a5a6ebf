package validation

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// plainEntities decodes the escapes bluemonday writes for ordinary
// punctuation. &lt; and &gt; stay encoded so the result never holds a tag.
var plainEntities = strings.NewReplacer(
	"&amp;", "&",
	"&#39;", "'",
	"&#34;", `"`,
	"&quot;", `"`,
)

// SanitizeText strips every HTML tag from s and trims it.
func SanitizeText(s string) string {
	return strings.TrimSpace(plainEntities.Replace(strict.Sanitize(s)))
}
