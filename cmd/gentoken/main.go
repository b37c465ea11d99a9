// Test program to generate bearer tokens for local development. It starts
// an in-process issuer, prints a signed token and the issuer's URLs, and
// with --serve keeps the JWKS endpoint alive so a locally running server
// (AUTH_ISSUER / AUTH_AUDIENCE pointed here) can verify the token.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gatherly/server/internal/testauth"
)

func main() {
	subject := flag.String("subject", "auth0|dev-user", "token subject")
	roles := flag.String("roles", "", "comma-separated roles (e.g. admin)")
	audience := flag.String("audience", "https://api.gatherly.events", "token audience")
	rolesClaim := flag.String("roles-claim", "https://gatherly.events/roles", "namespaced roles claim")
	expiresIn := flag.Duration("expires-in", time.Hour, "token lifetime")
	serve := flag.Bool("serve", false, "keep the JWKS endpoint running until interrupted")
	flag.Parse()

	issuer, err := testauth.NewIssuer(*audience, *rolesClaim)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer issuer.Close()

	var roleList []string
	if *roles != "" {
		roleList = strings.Split(*roles, ",")
	}

	token, err := issuer.Token(testauth.TokenOptions{
		Subject:   *subject,
		Roles:     roleList,
		ExpiresIn: *expiresIn,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Bearer token:")
	fmt.Println(token)
	fmt.Printf("\nIssuer:   %s\nJWKS URL: %s\n", issuer.URL(), issuer.JWKSURL())
	fmt.Println("\nTest with:")
	fmt.Printf("curl -H 'Authorization: Bearer %s' http://localhost:8080/api/events/admin\n", token)

	if !*serve {
		fmt.Println("\nNote: the JWKS endpoint stops with this process; run with --serve to keep it up.")
		return
	}

	fmt.Println("\nServing JWKS until interrupted. Point the server at it with:")
	fmt.Printf("  AUTH_ISSUER=%s AUTH_AUDIENCE=%s AUTH_ROLES_CLAIM=%s\n", issuer.URL(), *audience, *rolesClaim)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
}
