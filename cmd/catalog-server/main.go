package main

import (
	"log"
	"net/http"
	"os"

	flag "github.com/spf13/pflag"
	"github.com/tailscale/hujson"
)

func main() {
	addr := flag.String("addr", ":9000", "listen address")
	catalog := flag.String("catalog", "assets/data/recetas.json", "catalog document (JSON or JSONC)")
	page := flag.String("page", "index.html", "host page")
	flag.Parse()

	mux := http.NewServeMux()
	mux.Handle("/recetas.json", catalogHandler(*catalog))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" && r.URL.Path != "/index.html" {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, *page)
	})

	log.Printf("catalog-server listening on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, mux))
}

// catalogHandler serves the catalog as plain JSON, comments and trailing
// commas removed, and refuses to serve a broken document.
func catalogHandler(path string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := os.ReadFile(path)
		if err != nil {
			http.Error(w, "cannot read catalog: "+err.Error(), http.StatusInternalServerError)
			return
		}
		// validate JSON so bad file doesn't silently break
		b, err = hujson.Standardize(b)
		if err != nil {
			http.Error(w, "catalog invalid JSON: "+err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	})
}
