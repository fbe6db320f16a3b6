package httpclient

import (
	"github.com/kbukum/vaultkit/errors"
)

// TokenExtractor pulls the client token out of a successful login response.
// An empty token leaves the adapter token unchanged.
type TokenExtractor interface {
	ExtractToken(resp *Response) (string, error)
}

// TokenExtractorFunc adapts a function to TokenExtractor.
type TokenExtractorFunc func(resp *Response) (string, error)

// ExtractToken calls f(resp).
func (f TokenExtractorFunc) ExtractToken(resp *Response) (string, error) {
	return f(resp)
}

// AuthClientToken reads auth.client_token, the shape every Vault auth
// method returns.
var AuthClientToken TokenExtractor = TokenExtractorFunc(func(resp *Response) (string, error) {
	if resp.IsEmpty() {
		return "", nil
	}
	body, err := resp.JSON()
	if err != nil {
		return "", err
	}
	auth, ok := body["auth"].(map[string]any)
	if !ok {
		return "", nil
	}
	switch token := auth["client_token"].(type) {
	case nil:
		return "", nil
	case string:
		return token, nil
	default:
		return "", errors.Newf(errors.KindParse, "auth.client_token has type %T", token).
			WithRequest(resp.Method, resp.URL)
	}
})

// DataField reads a string from the data object, e.g. "token" for
// endpoints that return a token outside the auth block.
func DataField(key string) TokenExtractor {
	return TokenExtractorFunc(func(resp *Response) (string, error) {
		v, _ := resp.Data()[key].(string)
		return v, nil
	})
}
