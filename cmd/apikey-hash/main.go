// Command apikey-hash mints an API key for operators. It prints the key ID,
// the bcrypt hash to store in api_keys, and the token to hand to the client.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/phrazzld/scry-scheduler/internal/service/auth"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost for the stored hash")
	userID := flag.String("user", "", "user ID the key belongs to, used in the printed SQL")
	name := flag.String("name", "default", "label stored with the key")
	flag.Parse()

	if *cost < bcrypt.MinCost || *cost > bcrypt.MaxCost {
		fmt.Fprintf(os.Stderr, "cost must be between %d and %d\n", bcrypt.MinCost, bcrypt.MaxCost)
		os.Exit(2)
	}

	key, err := auth.GenerateAPIKey(*cost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate api key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Key ID: %s\n", key.ID)
	fmt.Printf("Hash:   %s\n", key.Hash)
	fmt.Printf("Token:  %s\n", key.Token)
	if *userID != "" {
		fmt.Printf("\nINSERT INTO api_keys (id, user_id, name, secret_hash) VALUES ('%s', '%s', '%s', '%s');\n",
			key.ID, *userID, *name, key.Hash)
	}
}
