package domain

import (
	"strings"
	"time"
)

// ReviewStatus is the tri-state verdict attached to a flagged revision.
type ReviewStatus int

const (
	StatusReady    ReviewStatus = 0
	StatusFixed    ReviewStatus = 1
	StatusNoAction ReviewStatus = 2
)

// Valid reports whether the value is one of the three known statuses.
func (s ReviewStatus) Valid() bool {
	return s == StatusReady || s == StatusFixed || s == StatusNoAction
}

// DraftNamespace is the namespace whose titles carry a Draft: prefix in
// display and lookups.
const DraftNamespace = 118

const draftPrefix = "Draft:"

// FilterOpen is the feed filter showing only records that still need review.
const FilterOpen = "open"

// Record is one flagged revision under moderation review. The enriched
// fields below Status are populated by the enrichment pipeline and never
// persisted.
type Record struct {
	ID             int64
	DiffRevisionID int64
	PageNamespace  int
	PageTitle      string
	DiffTimestamp  time.Time

	// ReportText is the raw plagiarism report blob. It is consumed by the
	// citation parser and cleared before the record leaves the pipeline.
	ReportText string

	Status          ReviewStatus
	StatusUser      string
	ReviewTimestamp *time.Time

	Editor              string
	EditCount           *int
	PageIsDead          bool
	AutomatedScore      *float64
	RelatedProjects     []string
	Citations           []SourceCitation
	ReviewedByURL       string
	DiffTimestampText   string
	ReviewTimestampText string
}

// SourceCitation is one detected external match parsed from a report blob.
type SourceCitation struct {
	MatchFraction float64
	MatchCount    int
	SourceURL     string
}

// ReviewReceipt is returned after a successful review transition so the
// caller can render the reviewer inline without a reload.
type ReviewReceipt struct {
	Status      ReviewStatus
	User        string
	UserPageURL string
	Timestamp   string
}

// ViewContext carries the request-scoped view parameters that used to live
// in ambient globals: which wiki, which feed filter, and whether the request
// is a permalink to a single record.
type ViewContext struct {
	Lang      string
	Filter    string
	Permalink bool
}

// DisplayTitle returns the title as shown to humans and used for page
// lookups. Draft-namespace titles get the Draft: prefix exactly once.
func DisplayTitle(namespace int, title string) string {
	if namespace == DraftNamespace && !strings.HasPrefix(title, draftPrefix) {
		return draftPrefix + title
	}
	return title
}

// UnderscoresToSpaces converts a stored page or project title to its
// human-readable form.
func UnderscoresToSpaces(title string) string {
	return strings.ReplaceAll(title, "_", " ")
}

// FormatWikiTime renders a timestamp the way the dashboard displays review
// and diff times.
func FormatWikiTime(t time.Time) string {
	return t.UTC().Format("15:04, 2 January 2006")
}
