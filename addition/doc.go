// Package addition adds content before and after the body of html responses.
//
// The content is produced by nested requests for two locators, configured per scope:
//
//	addition.SetBeforeBody(mux.Scope(), "/fragments/header.html")
//	addition.SetAfterBody(docs, "s3://site-fragments/footer.html")
//
// The filter only acts on main requests answered with 200 and a text/html content type. Because the length of such
// a response changes, Content-Length and Accept-Ranges are removed from it. The body is not buffered: the before
// content is started when the first delivery arrives, the end-of-stream flag of the original body is held back and
// the after content is started once the original body ended, followed by a new end-of-stream marker.
//
// When only before content is configured, the original end-of-stream flag is still held back and not sent again by
// the filter; the server closes such responses itself once the main request and its nested requests are done.
package addition
