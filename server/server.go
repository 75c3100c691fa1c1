package server

import (
	"crypto/tls"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/urfave/negroni"
	"golang.org/x/crypto/acme/autocert"

	"github.com/clauselens/clauselens/handlers"
)

func SetupRoutes(extract *handlers.ExtractHandler, review *handlers.ReviewHandler) *mux.Router {
	r := mux.NewRouter()

	r.Handle("/extract", extract).Methods("POST")

	r.HandleFunc("/reviews", review.CreateReview).Methods("POST")
	r.HandleFunc("/reviews", review.ListReviews).Methods("GET")
	r.HandleFunc("/reviews/anchor", review.QuickAnchor).Methods("POST")
	r.HandleFunc("/reviews/chat", review.Chat).Methods("POST")
	r.HandleFunc("/reviews/{id}", review.GetReview).Methods("GET")

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")

	return r
}

// ServeProduction builds the server when we operate in a production
// environment.
func ServeProduction(n *negroni.Negroni, domains []string, certCacheDir string) {
	autocertManager := autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(certCacheDir),
	}

	// Listen for HTTP requests on port 80 in a new goroutine. Use
	// autocertManager.HTTPHandler(nil) as the handler. This will send ACME
	// "http-01" challenge responses as necessary, and 302 redirect all other
	// requests to HTTPS.
	go func() {
		srv := &http.Server{
			Addr:         ":80",
			Handler:      autocertManager.HTTPHandler(nil),
			IdleTimeout:  time.Minute,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		}

		err := srv.ListenAndServe()
		log.Fatal(err)
	}()

	tlsConfig := &tls.Config{
		GetCertificate:   autocertManager.GetCertificate,
		CurvePreferences: []tls.CurveID{tls.X25519, tls.CurveP256},
	}

	srv := &http.Server{
		Addr:         ":443",
		Handler:      n,
		TLSConfig:    tlsConfig,
		IdleTimeout:  time.Minute,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
	}

	// Key and cert provided automatically by autocert.
	err := srv.ListenAndServeTLS("", "")
	log.Fatal(err)
}

// ServeDevelopment starts the server when we operate in a dev environment.
func ServeDevelopment(s *http.Server) {
	log.Fatal(s.ListenAndServe())
}
