package bsplice

// HeaderFilter is one stage of the header pipeline. It is called once per request, before any body bytes reach the
// body stages, and is expected to call the next stage it captured when it was wrapped.
type HeaderFilter interface {
	FilterHeader(r *Request) error
}

// HeaderFilterFunc allow casting a function to implement [HeaderFilter].
type HeaderFilterFunc func(r *Request) error

// FilterHeader implements the [HeaderFilter] interface.
func (f HeaderFilterFunc) FilterHeader(r *Request) error { return f(r) }

// BodyFilter is one stage of the body pipeline. It is called for every delivery of the request's body, strictly in
// order and never concurrently for the same request.
type BodyFilter interface {
	FilterBody(r *Request, in Chain) error
}

// BodyFilterFunc allow casting a function to implement [BodyFilter].
type BodyFilterFunc func(r *Request, in Chain) error

// FilterBody implements the [BodyFilter] interface.
func (f BodyFilterFunc) FilterBody(r *Request, in Chain) error { return f(r, in) }

// Stages is the pair of entry points of a (partial) pipeline.
type Stages struct {
	Header HeaderFilter
	Body   BodyFilter
}

// Filter installs itself in front of the next stages. Wrap is called exactly once, when the pipeline is built, and the
// filter keeps the stages it was given as its "next" for its whole life. A filter that only cares about one of the
// two directions may leave the other field of the returned Stages nil.
type Filter interface {
	Name() string
	Wrap(next Stages) Stages
}

// ConfigResolver is implemented by filters that keep per-scope configuration. The pipeline calls ResolveConfig once
// for every scope a route is registered in, the result is read by the filter through [Config].
type ConfigResolver interface {
	ConfigKey() *Key
	ResolveConfig(s *Scope) any
}

// Pipeline is the ordered composition of filters in front of the output stage. It is built once and shared by all
// requests.
type Pipeline struct {
	top       Stages
	names     []string
	resolvers []ConfigResolver
}

// NewPipeline composes the filters. The order is that of [Wrap]: the filter provided first sees headers and
// deliveries first, the filter provided last is closest to the output.
func NewPipeline(filters ...Filter) *Pipeline {
	p := &Pipeline{top: Stages{
		Header: HeaderFilterFunc(outputHeader),
		Body:   BodyFilterFunc(outputBody),
	}}

	for i := len(filters) - 1; i >= 0; i-- {
		wrapped := filters[i].Wrap(p.top)
		if wrapped.Header == nil {
			wrapped.Header = p.top.Header
		}
		if wrapped.Body == nil {
			wrapped.Body = p.top.Body
		}
		p.top = wrapped
	}

	for _, f := range filters {
		p.names = append(p.names, f.Name())
		if cr, ok := f.(ConfigResolver); ok {
			p.resolvers = append(p.resolvers, cr)
		}
	}

	return p
}

// Top returns the first stages of the pipeline.
func (p *Pipeline) Top() Stages { return p.top }

// Names lists the filters in the order they see the response.
func (p *Pipeline) Names() []string { return append([]string(nil), p.names...) }

// Resolve resolves the configuration of every filter for the scope and its ancestors. It is idempotent.
func (p *Pipeline) Resolve(s *Scope) {
	for _, cr := range p.resolvers {
		s.resolve(cr.ConfigKey(), cr.ResolveConfig)
	}
}

// SendLast emits an empty end-of-stream delivery into next. Filters that held back the end of the stream call this
// with their own next stage once they are done adding content.
func SendLast(r *Request, next BodyFilter) error {
	return next.FilterBody(r, NewChain(LastBuffer()))
}
