package web

// MaxDelegation bounds the interpreter steps for one request.
const MaxDelegation = 8

// Handler serves a request and returns the next step.
type Handler func(req *Request) (Result, error)

// Result is one interpreter step. The set of implementations is closed.
type Result interface {
	isResult()
}

// Done ends the request.
type Done struct{}

// StaticFile streams the file at Path with a 200 response.
type StaticFile struct {
	Path string
}

// Templated streams the file at Path line by line, replacing each {key}
// with the matching Context value.
type Templated struct {
	Path    string
	Context map[string]any
}

// Context templates the file behind the current URL with Data.
type Context struct {
	Data map[string]any
}

// Invoke calls Handler and continues with its result. A nil result ends
// the request.
type Invoke struct {
	Handler Handler
}

func (Done) isResult()       {}
func (StaticFile) isResult() {}
func (Templated) isResult()  {}
func (Context) isResult()    {}
func (Invoke) isResult()     {}

// Call wraps a handler as a Result.
func Call(h Handler) Result {
	return Invoke{Handler: h}
}
