package sync

// CommitInfo carries the minimal metadata about a just-committed submission
// that Publisher.Publish needs: which cells changed, and under which mode.
type CommitInfo struct {
	CellIDs []uint64
	Mode    SubmissionMode
}

// Publisher dispatches post-commit notifications to external subscribers
// keyed by cell id (spec.md §4.6 phase 6, "publisher dispatch"). The core
// only ever holds the opaque publisher handles PublicationsFor returns; it
// never inspects them, it only hands them back to Publish.
type Publisher interface {
	PublicationsFor(cellID uint64) []any
	Publish(publisher any, info CommitInfo)
}
