// hello-cgi greets the "name" field of a form-encoded request body.
package main

import (
	"os"

	"github.com/gur-shatz/go-cgi/internal/log"
	"github.com/gur-shatz/go-cgi/pkg/greeter"
)

func main() {
	log.SetPrefix("[hello-cgi]")
	log.Init(false)
	if err := greeter.Serve(os.Stdin, os.Stdout); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}
