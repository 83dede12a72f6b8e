package docservice

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/docmap/pkg/errors"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]ClientOption{WithLogger(log.New(io.Discard))}, opts...)
	c, err := NewClient(srv.URL+"/", opts...)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestClientFetchInitialTree(t *testing.T) {
	x := newIndex(t)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/v1/mindmap/report" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("depth"); got != "2" {
			t.Errorf("depth = %q", got)
		}
		tr, _ := x.Tree("report", 2)
		json.NewEncoder(w).Encode(tr)
	}, WithDepth(2))

	tr, err := c.FetchInitialTree(context.Background(), "report")
	if err != nil {
		t.Fatal(err)
	}
	if tr.RootID != "r" || len(tr.Nodes) != 4 {
		t.Errorf("tree = %+v", tr)
	}
}

func TestClientFetchChildren(t *testing.T) {
	x := newIndex(t)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/nodes/b/expand" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		var req ExpandRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.WantContent() {
			t.Errorf("body = %+v, %v", req, err)
		}
		exp, _ := x.Expand("b", req.WantContent())
		json.NewEncoder(w).Encode(exp)
	})

	exp, err := c.FetchChildren(context.Background(), "b")
	if err != nil {
		t.Fatal(err)
	}
	if exp.Node.ID != "b" || len(exp.Children) != 1 || exp.Children[0].ID != "c" {
		t.Errorf("expansion = %+v", exp)
	}
}

func TestClientEscapesIDs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/api/v1/nodes/a%2Fb" {
			t.Errorf("path = %s", r.URL.EscapedPath())
		}
		w.Write([]byte(`{"id":"a/b","title":"x"}`))
	})
	if _, err := c.Node(context.Background(), "a/b"); err != nil {
		t.Fatal(err)
	}
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   errors.Code
	}{
		{"coded", http.StatusNotFound, `{"detail":"node x not found","error_code":"NODE_NOT_FOUND"}`, errors.ErrCodeNodeNotFound},
		{"plain 404", http.StatusNotFound, `not here`, errors.ErrCodeNotFound},
		{"server error", http.StatusInternalServerError, ``, errors.ErrCodeNetwork},
		{"bad request", http.StatusBadRequest, `{"detail":"depth"}`, errors.ErrCodeInvalidInput},
		{"gateway timeout", http.StatusGatewayTimeout, ``, errors.ErrCodeTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := c.FetchChildren(context.Background(), "x")
			if got := errors.GetCode(err); got != tt.want {
				t.Errorf("code = %s, want %s (err %v)", got, tt.want, err)
			}
		})
	}
}

func TestClientDecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"node":`))
	})
	_, err := c.FetchChildren(context.Background(), "x")
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("err = %v, want INVALID_FORMAT", err)
	}
}

func TestClientTimeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	}, WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
	defer close(release)

	_, err := c.FetchChildren(context.Background(), "x")
	if !errors.Is(err, errors.ErrCodeTimeout) {
		t.Errorf("err = %v, want TIMEOUT", err)
	}
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(url, WithLogger(log.New(io.Discard)))
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.FetchInitialTree(context.Background(), "report")
	if !errors.Is(err, errors.ErrCodeNetwork) {
		t.Errorf("err = %v, want NETWORK_ERROR", err)
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	if _, err := NewClient("localhost:8000"); err == nil {
		t.Error("scheme-less URL should be rejected")
	}
}
