package bsrv

// WithLWAContextForTest exposes the lambda context middleware to the external tests.
var WithLWAContextForTest = withLWAContext
