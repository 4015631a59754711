package web

import (
	"slices"
	"strings"
)

// RequireMethod fails with 501 unless the request uses one of methods.
func RequireMethod(req *Request, methods ...string) error {
	if slices.Contains(methods, req.Method) {
		return nil
	}
	return Errorf(501, "method %s not allowed on %s", req.Method, req.Path)
}

// ReadJSONBody checks the body headers and reads a JSON body. Missing
// Content-Length or Content-Type is 400; a non-JSON content type is 501.
func ReadJSONBody(req *Request) ([]byte, error) {
	if _, err := req.ContentLength(); err != nil {
		return nil, err
	}
	ct, ok := req.Header(HeaderContentType)
	if !ok {
		return nil, Errorf(400, "missing %s", HeaderContentType)
	}
	if !strings.Contains(ct, "application/json") {
		return nil, Errorf(501, "unsupported content type %q", ct)
	}
	return req.ReadBody()
}
