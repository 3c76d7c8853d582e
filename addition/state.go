package addition

import "github.com/advdv/bsplice"

// State tracks which injections a request already started. Each flag only ever goes from false to true.
type State struct {
	BeforeBodySent bool
	AfterBodySent  bool
}

// StateOf returns the state attached to the request, there is none when nothing is added to its response.
func StateOf(r *bsplice.Request) (*State, bool) {
	return bsplice.Ext[*State](r, key)
}
