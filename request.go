package bridge

import "net/http"

// HTTPRequest adapts a net/http request to the Request interface.
type HTTPRequest struct {
	R *http.Request
}

// NewHTTPRequest wraps r.
func NewHTTPRequest(r *http.Request) HTTPRequest {
	return HTTPRequest{R: r}
}

func (h HTTPRequest) Header(name string) string {
	if h.R == nil {
		return ""
	}
	return h.R.Header.Get(name)
}

func (h HTTPRequest) Cookie(name string) string {
	if h.R == nil {
		return ""
	}
	c, err := h.R.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// Input reads a query or form value.
func (h HTTPRequest) Input(name string) string {
	if h.R == nil {
		return ""
	}
	return h.R.FormValue(name)
}
