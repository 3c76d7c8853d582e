// Command bsplice serves the site configured in BS_SITE_CONFIG, adding content before and after the body of its
// html pages.
package main

import "github.com/advdv/bsplice/bsrv"

func main() {
	bsrv.NewApp[bsrv.BaseEnvironment](func(*bsrv.Mux) {}).Run()
}
