package ai

import (
	"compress/flate"
	"compress/gzip"
	"io"
	"net/http"

	"github.com/andybalholm/brotli"
)

// acceptEncoding is advertised on every provider request. The transport's
// own gzip handling is disabled so brotli replies decode the same way.
const acceptEncoding = "br, gzip, deflate"

func decompressReader(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "deflate":
		return flate.NewReader(resp.Body), nil
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

// readBody returns the decoded response body, capped at limit bytes.
func readBody(resp *http.Response, limit int64) ([]byte, error) {
	r, err := decompressReader(resp)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(io.LimitReader(r, limit))
}
