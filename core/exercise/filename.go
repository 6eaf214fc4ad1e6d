package exercise

import (
	"net/url"
	"strings"
)

// Characters that are hazardous in a filename header position; replaced
// before percent-encoding.
var filenameHazards = strings.NewReplacer(
	":", "-",
	"\\", "-",
	"/", "-",
	"?", "-",
	"&", "-",
)

// EncodeDispositionFilename prepares a resource filename for use in a
// Content-Disposition header: hazard characters become hyphens, the rest is
// percent-encoded, and literal '+' (produced by encoding spaces) is rewritten
// to %20 since some clients misinterpret '+' in this header position.
func EncodeDispositionFilename(name string) string {
	name = filenameHazards.Replace(name)
	return strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
}
