// Package server serves the generated feed documents for local preview.
package server

import (
	"fmt"
	"net/http"
	"strings"
)

// Serve exposes the output directory on the given port. Feed files are
// served with their XML content type so browsers render them instead of
// downloading.
func Serve(outputDir string, port int) error {
	mux := http.NewServeMux()
	files := http.FileServer(http.Dir(outputDir))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".xml") {
			w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
		}
		files.ServeHTTP(w, r)
	})

	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}
