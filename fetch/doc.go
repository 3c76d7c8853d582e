// Package fetch provides fragment sources for locators that are not served by the server itself.
//
// Every source implements [bsplice.Source] and is registered for one URL scheme:
//
//	http://, https://             plain GET through an instrumented transport
//	s3://bucket/key               an S3 object
//	ssm:///name#path              an SSM parameter, optionally a gjson path within its JSON value
//	secretsmanager://name#path    a Secrets Manager secret, optionally a gjson path within it
//
// A fragment ends up in a public page. Store only values meant to be published under the ssm and secretsmanager
// locators a site adds, never the credentials kept next to them: a secret holding both needs a path selecting the
// published value, and [Secrets] refuses a locator that selects a whole JSON object or array.
//
// Fragments that rarely change can be cached for a while with [Cached].
package fetch
