package crypto

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSign_KnownVector(t *testing.T) {
	// The venue's documented signature example.
	auth := &HMACAuth{
		Key:    "vmPUZE6mv9SD5VNHk4HlWFsOr6aKE2zvsw0MuIgwCIPy6utIco14y7Ju91duEh8A",
		Secret: "NhqPtmdSJYdKjVHjA7PZj4Mge3R5YNiP1e3UZjInClVN65XAbvqqM6A7H5fATj0j",
	}
	payload := "symbol=LTCBTC&side=BUY&type=LIMIT&timeInForce=GTC&quantity=1&price=0.1&recvWindow=5000&timestamp=1499827319559"

	assert.Equal(t,
		"c8db56825ae71d6d79447849e617115f4a920fa2acdcab2b053c4b2838bd6b71",
		auth.Sign(payload),
	)
}

func TestSignQuery_AppendsTimestampAndSignature(t *testing.T) {
	auth := &HMACAuth{Key: "test-key", Secret: "test-secret"}

	params := url.Values{}
	params.Set("symbol", "BTCUSDT")
	signed := auth.SignQuery(params, 1700000000000, 5000)

	// url.Values.Encode sorts keys; the signature is computed over that exact
	// byte sequence and appended last.
	assert.Equal(t,
		"recvWindow=5000&symbol=BTCUSDT&timestamp=1700000000000"+
			"&signature=0d90f16f7356bb8fcf3ca4e5d43d1a9768d14daa3720f9e22788780ce8cf6c7a",
		signed,
	)
}

func TestSignQuery_NilParamsAndNoRecvWindow(t *testing.T) {
	auth := &HMACAuth{Secret: "test-secret"}

	signed := auth.SignQuery(nil, 1700000000000, 0)

	parsed, err := url.ParseQuery(signed)
	assert.NoError(t, err)
	assert.Equal(t, "1700000000000", parsed.Get("timestamp"))
	assert.Empty(t, parsed.Get("recvWindow"))
	assert.Len(t, parsed.Get("signature"), 64)
}

func TestSign_Deterministic(t *testing.T) {
	auth := &HMACAuth{Secret: "s"}
	assert.Equal(t, auth.Sign("payload"), auth.Sign("payload"))
	assert.NotEqual(t, auth.Sign("payload"), auth.Sign("payload2"))
}

func TestString_RedactsCredentials(t *testing.T) {
	auth := &HMACAuth{Key: "abcdefgh", Secret: "12345678"}
	s := auth.String()
	assert.NotContains(t, s, "abcdefgh")
	assert.NotContains(t, s, "12345678")
	assert.Contains(t, s, "abcd****")
}
