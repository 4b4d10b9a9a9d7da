package auth_test

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jonwraymond/memops/auth"
)

func ExampleOwnerAuthorizer() {
	secret := []byte("example-secret")
	now := time.Now()
	token, _ := auth.SignToken(secret, auth.TokenSpec{Subject: "alice", Owner: "alice", TTL: time.Hour}, now)

	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	res, _ := auth.NewJWTAuthenticator(auth.JWTConfig{Secret: secret}).
		Authenticate(context.Background(), &auth.AuthRequest{Headers: h})

	authz := auth.OwnerAuthorizer{}
	for _, user := range []string{"alice", "bob"} {
		err := authz.Authorize(context.Background(), &auth.AuthzRequest{
			Subject: res.Identity, Tool: "get_all_memories", UserID: user,
		})
		fmt.Println(user, err == nil)
	}
	// Output:
	// alice true
	// bob false
}
