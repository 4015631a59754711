package web

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"
)

// Realm is the Basic auth realm sent with 401 responses.
const Realm = "Restricted"

// Credentials is the fixed user and password accepted by RequireBasicAuth.
type Credentials struct {
	User     string
	Password string
}

// Unauthorized returns the 401 error carrying the Basic challenge.
func Unauthorized() *HTTPError {
	return NewHTTPError(401).WithHeader("WWW-Authenticate", `Basic realm="`+Realm+`"`)
}

// RequireBasicAuth wraps next so it only runs for requests presenting
// creds.
func RequireBasicAuth(creds Credentials, next Handler) Handler {
	return func(req *Request) (Result, error) {
		if !creds.check(req) {
			return nil, Unauthorized()
		}
		return next(req)
	}
}

func (c Credentials) check(req *Request) bool {
	header, ok := req.Header(HeaderAuthorization)
	if !ok {
		return false
	}
	scheme, encoded, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Basic") {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return false
	}
	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return false
	}

	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(c.User))
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(c.Password))
	return userOK&passOK == 1
}
