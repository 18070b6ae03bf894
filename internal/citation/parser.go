package citation

import (
	"regexp"
	"strconv"
	"strings"

	"copywatch/internal/domain"
)

// sourceExpr matches one report line: a bullet, then a percent figure, a
// match count, and finally an http(s) URL token bounded by whitespace or
// angle/parenthesis delimiters.
var sourceExpr = regexp.MustCompile(`\n\*.*?(\d+)%\s+(\d+).*?\b(https?://[^\s()<>]+)\b`)

// Parse extracts structured citations from a free-text report blob, in the
// order they appear. Lines that do not match the expected shape contribute
// nothing; an empty or fully unparsable blob yields an empty slice, never an
// error. Percent figures are stored as fractions.
func Parse(blob string) []domain.SourceCitation {
	citations := []domain.SourceCitation{}
	if blob == "" {
		return citations
	}

	// The pattern anchors each source on the newline before its bullet, so
	// a blob whose first line is itself a source needs one prepended.
	if !strings.HasPrefix(blob, "\n") {
		blob = "\n" + blob
	}

	for _, match := range sourceExpr.FindAllStringSubmatch(blob, -1) {
		percent, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		count, err := strconv.Atoi(match[2])
		if err != nil {
			continue
		}
		citations = append(citations, domain.SourceCitation{
			MatchFraction: float64(percent) / 100,
			MatchCount:    count,
			SourceURL:     match[3],
		})
	}

	return citations
}
