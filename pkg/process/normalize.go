package process

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/purell"
)

func Normalize(url string) (string, error) {
	flags := purell.FlagLowercaseScheme |
		purell.FlagLowercaseHost |
		purell.FlagRemoveDefaultPort |
		purell.FlagRemoveFragment |
		purell.FlagDecodeUnnecessaryEscapes |
		purell.FlagSortQuery |
		purell.FlagRemoveDuplicateSlashes |
		purell.FlagRemoveDotSegments

	return purell.NormalizeURLString(url, flags)
}

// NormalizeOrRaw is Normalize with the raw input as fallback.
func NormalizeOrRaw(raw string) string {
	n, err := Normalize(raw)
	if err != nil || n == "" {
		return raw
	}
	return n
}

// IsScrapable reports whether content may be read from the page. Only http
// and https pages qualify; browser-internal and file pages never do.
func IsScrapable(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}
