package wsnet

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/i474232898/sunshine-wear/internal/transport"
)

const tokenIssuer = "sunshine-wear"

var (
	// ErrUnauthorized is returned when a pairing token does not verify.
	ErrUnauthorized = errors.New("wsnet: unauthorized")
	errEmptySecret  = errors.New("wsnet: pairing secret must not be empty")
)

// IssueToken signs a pairing token identifying node. ttl <= 0 issues a token without expiry.
func IssueToken(secret []byte, node transport.Node, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errEmptySecret
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":  tokenIssuer,
		"sub":  string(node.ID),
		"name": node.DisplayName,
		"iat":  now.Unix(),
	}
	if ttl > 0 {
		claims["exp"] = now.Add(ttl).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyToken checks the signature and returns the node the token was issued to.
func VerifyToken(secret []byte, tokenStr string) (transport.Node, error) {
	if len(secret) == 0 {
		return transport.Node{}, errEmptySecret
	}
	token, err := jwt.Parse(
		tokenStr,
		func(*jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
	)
	if err != nil {
		return transport.Node{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return transport.Node{}, ErrUnauthorized
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return transport.Node{}, fmt.Errorf("%w: missing subject", ErrUnauthorized)
	}
	name, _ := claims["name"].(string)

	return transport.Node{ID: transport.NodeID(sub), DisplayName: name, Nearby: true}, nil
}
