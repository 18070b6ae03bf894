package domain

// CompareRequest identifies one revision/source pair for the external
// comparison viewer.
type CompareRequest struct {
	OldID   int64
	URL     string
	Project string
	Lang    string
}

// Comparison holds the two highlighted fragments returned by the comparison
// viewer, plus the text of the first highlighted match on each side so the
// client can scroll straight to it.
type Comparison struct {
	ArticleHTML   string
	SourceHTML    string
	ArticleAnchor string
	SourceAnchor  string
}
