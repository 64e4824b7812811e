// post-cgi echoes CONTENT_LENGTH bytes of the request body as plain text.
package main

import (
	"os"

	"github.com/gur-shatz/go-cgi/internal/log"
	"github.com/gur-shatz/go-cgi/pkg/echo"
)

func main() {
	log.SetPrefix("[post-cgi]")
	log.Init(false)
	if err := echo.Serve(echo.Environ, os.Stdin, os.Stdout); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}
