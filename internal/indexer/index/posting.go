package index

// Posting is a (token, document-id) pair.
type Posting struct {
	Token string
	DocID string
}

// PostingList is the deduplicated, sorted set of document ids of one token.
type PostingList []string

// TermEntry is one token and its posting list as written to a chunk.
type TermEntry struct {
	Term     string
	Postings PostingList
}

// TermStats summarises one token before frequency filtering.
type TermStats struct {
	Term    string
	Arity   int
	DocFreq int
}
