package match

// Document is the raw payload fetched for one match. The pipeline treats it
// as opaque bytes; only individual strategies interpret it.
type Document struct {
	MatchID string
	// Body is the rendered recap page (players view).
	Body []byte
	// CountsBody is the optional counts page carrying score-distribution and
	// checkout detail. Empty when the platform did not serve it.
	CountsBody []byte
}

func (d Document) Empty() bool {
	return len(d.Body) == 0 && len(d.CountsBody) == 0
}
