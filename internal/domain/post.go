package domain

// PostResult is the outcome of one publish attempt. Err is set iff !Success.
type PostResult struct {
	Success bool
	URI     string
	CID     string
	Err     error
}

// ErrorString is Err rendered for analytics payloads.
func (r PostResult) ErrorString() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
