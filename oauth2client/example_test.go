package oauth2client_test

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/AmmannChristian/go-restauth/oauth2client"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

const bufSize = 1024

var (
	bufListener = bufconn.Listen(bufSize)
	bufServer   = grpc.NewServer()
	bufOnce     sync.Once
)

func startBufServer() {
	bufOnce.Do(func() {
		go func() {
			_ = bufServer.Serve(bufListener)
		}()
	})
}

func dialBufConn(opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	startBufServer()

	dialOpts := []grpc.DialOption{
		grpc.WithContextDialer(func(c context.Context, _ string) (net.Conn, error) {
			select {
			case <-c.Done():
				return nil, c.Err()
			default:
			}
			return bufListener.Dial()
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}

	dialOpts = append(dialOpts, opts...)
	return grpc.NewClient("bufnet", dialOpts...)
}

// Example demonstrates an Authority backing gRPC interceptors.
func Example() {
	ctx := context.Background()

	authority := oauth2client.NewClientCredentialsAuthority(
		ctx,
		"https://accounts.example.com/api/token",
		"client-id",
		"client-secret",
	)

	conn, err := dialBufConn(
		grpc.WithUnaryInterceptor(authority.UnaryClientInterceptor()),
		grpc.WithStreamInterceptor(authority.StreamClientInterceptor()),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	fmt.Println("gRPC client configured with OAuth2 authentication")
	// Output: gRPC client configured with OAuth2 authentication
}

// ExampleNewAuthority demonstrates configuring a PKCE authority.
func ExampleNewAuthority() {
	authority := oauth2client.NewAuthority(context.Background(), oauth2client.Config{
		TokenURL:    "https://accounts.example.com/api/token",
		Credentials: oauth2client.Credentials{ClientID: "my-client-id"},
		Flow:        oauth2client.PKCE,
		RedirectURI: "http://127.0.0.1:8080/callback",
	})

	fmt.Println(authority.Flow(), authority.State())
	// Output: pkce unset
}

// ExampleCodeChallenge demonstrates deriving the S256 challenge of a verifier.
func ExampleCodeChallenge() {
	fmt.Println(oauth2client.CodeChallenge("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"))
	// Output: E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM
}

// ExampleAuthority_BeginAuthorization demonstrates preparing a PKCE authorization.
func ExampleAuthority_BeginAuthorization() {
	authority := oauth2client.NewAuthority(context.Background(), oauth2client.Config{
		TokenURL:    "https://accounts.example.com/api/token",
		Credentials: oauth2client.Credentials{ClientID: "my-client-id"},
		Flow:        oauth2client.PKCE,
		RedirectURI: "http://127.0.0.1:8080/callback",
	})

	params, err := authority.BeginAuthorization()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(params.ClientID, len(params.CodeChallenge))
	// Output: my-client-id 43
}
