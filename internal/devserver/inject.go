package devserver

import (
	"bytes"
	"net/http"
	"strings"
)

// injectScript is a middleware adding the live-reload client to HTML responses, before
// </body> when present and at the end of the document otherwise.
func injectScript(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if p != "" && !strings.HasSuffix(p, "/") && !strings.HasSuffix(p, ".html") {
			next.ServeHTTP(w, r)
			return
		}
		inj := &injector{ResponseWriter: w, statusCode: http.StatusOK, maxSize: 512 * 1024}
		next.ServeHTTP(inj, r)
		inj.finalize()
	})
}

// injector buffers an HTML response up to maxSize; larger or non-HTML responses pass
// through untouched.
type injector struct {
	http.ResponseWriter
	statusCode    int
	buffer        []byte
	headerWritten bool
	passthrough   bool
	maxSize       int
}

func (l *injector) WriteHeader(code int) {
	l.statusCode = code
	if l.passthrough {
		l.ResponseWriter.WriteHeader(code)
		l.headerWritten = true
	}
}

func (l *injector) Write(data []byte) (int, error) {
	if !l.headerWritten && !l.passthrough && l.buffer == nil {
		ct := l.ResponseWriter.Header().Get("Content-Type")
		if (ct != "" && !strings.Contains(ct, "text/html")) || l.statusCode != http.StatusOK {
			return l.startPassthrough(nil, data)
		}
		l.buffer = make([]byte, 0, 64*1024)
	}
	if l.passthrough {
		return l.ResponseWriter.Write(data)
	}
	if len(l.buffer)+len(data) > l.maxSize {
		return l.startPassthrough(l.buffer, data)
	}
	l.buffer = append(l.buffer, data...)
	return len(data), nil
}

func (l *injector) startPassthrough(buffered, data []byte) (int, error) {
	l.passthrough = true
	l.ResponseWriter.Header().Del("Content-Length")
	l.ResponseWriter.WriteHeader(l.statusCode)
	l.headerWritten = true
	if len(buffered) > 0 {
		if _, err := l.ResponseWriter.Write(buffered); err != nil {
			return 0, err
		}
	}
	return l.ResponseWriter.Write(data)
}

// finalize writes the buffered document with the script injected.
func (l *injector) finalize() {
	if l.passthrough || len(l.buffer) == 0 {
		if !l.headerWritten {
			l.ResponseWriter.WriteHeader(l.statusCode)
		}
		return
	}
	doc := l.buffer
	if i := bytes.LastIndex(bytes.ToLower(doc), []byte("</body>")); i >= 0 {
		doc = append(doc[:i:i], append([]byte(scriptTag), doc[i:]...)...)
	} else {
		doc = append(doc, scriptTag...)
	}
	l.ResponseWriter.Header().Del("Content-Length")
	l.ResponseWriter.WriteHeader(l.statusCode)
	_, _ = l.ResponseWriter.Write(doc)
}
