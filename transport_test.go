package vireo

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAPI serves a small slice of the backing API: a paged /videos
// collection plus endpoints for the failure conditions.
func mockAPI() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		if page == "" {
			page = "1"
		}

		body := map[string]any{
			"total":    100,
			"per_page": 25,
			"data": []map[string]any{
				{"uri": "/videos/" + page, "name": "clip " + page},
			},
		}
		paging := map[string]any{
			"first": "/videos?page=1",
			"last":  "/videos?page=4",
		}
		switch page {
		case "1":
			body["page"] = 1
			paging["next"] = "/videos?page=2"
		case "2":
			body["page"] = 2
			paging["next"] = "/videos?page=3"
			paging["previous"] = "/videos?page=1"
		default:
			body["page"] = 4
			paging["previous"] = "/videos?page=3"
		}
		body["paging"] = paging
		json.NewEncoder(w).Encode(body)
	})

	mux.HandleFunc("/videos/1", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			json.NewEncoder(w).Encode(map[string]any{"uri": "/videos/1", "name": "clip 1"})
		}
	})

	mux.HandleFunc("/maintenance", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	})

	mux.HandleFunc("/private", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})

	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]any{
			"echo":         body,
			"content_type": r.Header.Get("Content-Type"),
			"agent":        r.Header.Get("User-Agent"),
		})
	})

	return httptest.NewServer(mux)
}

type videoItem struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

func liveEngine(t *testing.T, server *httptest.Server) (*Engine, *Hub) {
	t.Helper()

	hub := NewHub()
	engine, err := New(DefaultConfig().
		WithBaseURL(server.URL).
		WithAccessToken("live-token").
		WithTimeout(5 * time.Second).
		WithNotifier(hub))
	require.NoError(t, err)
	return engine, hub
}

func await[T any](t *testing.T, engine *Engine, req Request[T]) (*Response[T], error) {
	t.Helper()

	type outcome struct {
		resp *Response[T]
		err  error
	}
	done := make(chan outcome, 1)
	Execute(engine, req, func(resp *Response[T], err error) {
		done <- outcome{resp, err}
	})

	select {
	case out := <-done:
		return out.resp, out.err
	case <-time.After(5 * time.Second):
		t.Fatal("callback never fired")
		return nil, nil
	}
}

func TestLiveVideosCollectionWalk(t *testing.T) {
	server := mockAPI()
	defer server.Close()
	engine, _ := liveEngine(t, server)

	req := Get[[]videoItem]("/videos").
		WithParameters(map[string]any{"page": 1, "per_page": 25}).
		WithModelKeyPath("data")

	first, err := await(t, engine, req)
	require.NoError(t, err)
	require.Len(t, first.Model, 1)
	assert.Equal(t, "clip 1", first.Model[0].Name)

	require.NotNil(t, first.Page)
	assert.Equal(t, 100, first.Page.TotalCount)
	assert.Equal(t, 1, first.Page.Number)
	assert.Equal(t, 25, first.Page.PerPage)
	assert.Nil(t, first.Page.Previous)
	require.NotNil(t, first.Page.Next)
	assert.Equal(t, "/videos?page=2", first.Page.Next.Path)

	// Follow the derived request onto the second page.
	second, err := await(t, engine, *first.Page.Next)
	require.NoError(t, err)
	assert.Equal(t, "clip 2", second.Model[0].Name)
	assert.Equal(t, 2, second.Page.Number)
	require.NotNil(t, second.Page.Previous)
	assert.Equal(t, "/videos?page=1", second.Page.Previous.Path)
}

func TestLiveSingleResource(t *testing.T) {
	server := mockAPI()
	defer server.Close()
	engine, _ := liveEngine(t, server)

	resp, err := await(t, engine, Get[videoItem]("/videos/1"))
	require.NoError(t, err)
	assert.Equal(t, "clip 1", resp.Model.Name)
	assert.False(t, resp.Cached)
}

func TestLiveNoContentDelete(t *testing.T) {
	server := mockAPI()
	defer server.Close()
	engine, _ := liveEngine(t, server)

	resp, err := await(t, engine, NoContentRequest(MethodDelete, "/videos/1"))
	require.NoError(t, err)
	assert.Nil(t, resp.Raw)
}

func TestLiveServiceUnavailable(t *testing.T) {
	server := mockAPI()
	defer server.Close()
	engine, hub := liveEngine(t, server)

	events := make(chan Event, 1)
	sub := hub.Subscribe(func(ev Event) { events <- ev })
	defer sub.Cancel()

	_, err := await(t, engine, Get[videoItem]("/maintenance"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceUnavailable)

	var engErr *Error
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, 503, engErr.StatusCode)
	assert.Equal(t, "/maintenance", engErr.Path)

	select {
	case ev := <-events:
		assert.Equal(t, EventServiceUnavailable, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected a service unavailable event")
	}
}

func TestLiveInvalidToken(t *testing.T) {
	server := mockAPI()
	defer server.Close()
	engine, hub := liveEngine(t, server)

	events := make(chan Event, 1)
	sub := hub.Subscribe(func(ev Event) { events <- ev })
	defer sub.Cancel()

	_, err := await(t, engine, Get[videoItem]("/private"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidToken)

	select {
	case ev := <-events:
		assert.Equal(t, EventInvalidToken, ev.Kind)
		assert.Equal(t, "live-token", ev.Token)
	case <-time.After(time.Second):
		t.Fatal("expected an invalid token event")
	}
}

func TestLivePostSendsJSONBody(t *testing.T) {
	server := mockAPI()
	defer server.Close()
	engine, _ := liveEngine(t, server)

	type echo struct {
		Echo        map[string]any `json:"echo"`
		ContentType string         `json:"content_type"`
		Agent       string         `json:"agent"`
	}

	req := Post[echo]("/echo").WithParameters(map[string]any{"name": "new clip"})
	resp, err := await(t, engine, req)
	require.NoError(t, err)

	assert.Equal(t, "new clip", resp.Model.Echo["name"])
	assert.Equal(t, "application/json", resp.Model.ContentType)
	assert.Equal(t, "vireo-go/1.0.0", resp.Model.Agent)
}

func TestLiveGetEncodesQueryParameters(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer server.Close()
	engine, _ := liveEngine(t, server)

	req := Get[map[string]any]("/search").WithParameters(map[string]any{"q": "birds", "page": 2})
	_, err := await(t, engine, req)
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "q=birds")
	assert.Contains(t, gotQuery, "page=2")
}

func TestLiveAbsolutePathBypassesBaseURL(t *testing.T) {
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"host": "other"})
	}))
	defer other.Close()

	server := mockAPI()
	defer server.Close()
	engine, _ := liveEngine(t, server)

	resp, err := await(t, engine, Get[map[string]any](other.URL+"/anything"))
	require.NoError(t, err)
	assert.Equal(t, "other", resp.Model["host"])
}

func TestDecodeBody(t *testing.T) {
	assert.Nil(t, decodeBody(nil))
	assert.Nil(t, decodeBody([]byte("  \n")))

	decoded := decodeBody([]byte(`{"a": 1}`))
	obj, ok := decoded.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), obj["a"])

	raw := decodeBody([]byte("not json"))
	assert.Equal(t, []byte("not json"), raw)
}
