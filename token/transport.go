package token

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// paramTransport adds fixed form parameters to every token endpoint request.
// x/oauth2 has no hook for extra parameters on refresh, and TikTok rejects
// requests without client_key.
type paramTransport struct {
	base   http.RoundTripper
	params url.Values
}

func (t *paramTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodPost || req.Body == nil ||
		!strings.HasPrefix(req.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		return t.base.RoundTrip(req)
	}

	raw, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, err
	}
	form, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil, err
	}
	for key, values := range t.params {
		if form.Get(key) != "" {
			continue
		}
		for _, v := range values {
			form.Add(key, v)
		}
	}

	encoded := form.Encode()
	clone := req.Clone(req.Context())
	clone.Body = io.NopCloser(strings.NewReader(encoded))
	clone.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader([]byte(encoded))), nil
	}
	clone.ContentLength = int64(len(encoded))
	clone.Header.Set("Content-Length", strconv.Itoa(len(encoded)))
	return t.base.RoundTrip(clone)
}
