package router

import "fmt"

// StatusError is returned for any router response outside the 2xx range.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("router: %s %s: http %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("router: %s %s: http %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}
