// Command generate-jwt prints an HS256 token accepted by the demo server's
// /private stream.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/liquidnya/eventsource/internal/credentials"
)

func main() {
	secret := flag.String("secret", "dev-secret", "shared HS256 secret")
	subject := flag.String("subject", "user123", "token subject")
	issuer := flag.String("issuer", "ssetail-dev", "token issuer")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	signer, err := credentials.NewJWTSigner(credentials.JWTConfig{
		Secret:  []byte(*secret),
		Issuer:  *issuer,
		Subject: *subject,
		TTL:     *ttl,
	})
	if err != nil {
		log.Fatal("Failed to create signer: ", err)
	}

	token, err := signer.Token()
	if err != nil {
		log.Fatal("Failed to sign token: ", err)
	}

	fmt.Println(token)
	fmt.Println()
	fmt.Println("Use this token with:")
	fmt.Printf("EVENTSOURCE_STREAM_WITHCREDENTIALS=true EVENTSOURCE_CREDENTIALS_BEARERTOKEN=%s \\\n  ssetail -url http://localhost:3010/private\n", token)
}
