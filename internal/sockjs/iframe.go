package sockjs

import (
	"crypto/md5"
	"encoding/hex"
	"net/http"

	"github.com/valyala/fasttemplate"
)

// iframeTemplate is served on /iframe*.html for transports that work
// around the same origin policy by bootstrapping the client inside a
// hidden iframe hosted by this server.
const iframeTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta http-equiv="X-UA-Compatible" content="IE=edge" />
  <meta http-equiv="Content-Type" content="text/html; charset=UTF-8" />
  <script src="{{sockjs_url}}"></script>
  <script>
    document.domain = document.domain;
    SockJS.bootstrap_iframe();
  </script>
</head>
<body>
  <h2>Don't panic!</h2>
  <p>This is a SockJS hidden iframe. It's used for cross domain magic.</p>
</body>
</html>
`

func renderIframe(sockjsURL string) []byte {
	t := fasttemplate.New(iframeTemplate, "{{", "}}")
	return []byte(t.ExecuteString(map[string]interface{}{"sockjs_url": sockjsURL}))
}

func pageETag(page []byte) string {
	sum := md5.Sum(page)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

func (h *Handler) iframeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("If-None-Match") == h.iframeETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=UTF-8")
	w.Header().Set("ETag", h.iframeETag)
	writeCacheForHeaders(w, oneYearSeconds)
	_, _ = w.Write(h.iframePage)
}
