package drive

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	svc, err := gdrive.NewService(context.Background(),
		option.WithEndpoint(ts.URL),
		option.WithHTTPClient(ts.Client()))
	require.NoError(t, err)
	return &Client{svc: svc, folderID: "folder"}
}

func writeFileList(t *testing.T, w http.ResponseWriter, files []map[string]string, nextToken string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	body := map[string]any{"files": files}
	if nextToken != "" {
		body["nextPageToken"] = nextToken
	}
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func TestListPDFsFollowsPagination(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch r.URL.Query().Get("pageToken") {
		case "":
			writeFileList(t, w, []map[string]string{{"id": "1", "name": "relays.pdf"}}, "page-2")
		case "page-2":
			writeFileList(t, w, []map[string]string{{"id": "2", "name": "points.pdf"}}, "")
		default:
			http.Error(w, "unexpected page token", http.StatusBadRequest)
		}
	})

	files, err := client.ListPDFs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "every continuation token must be followed")
	assert.Equal(t, []File{
		{ID: "1", Name: "relays.pdf"},
		{ID: "2", Name: "points.pdf"},
	}, files)
}

func TestListVisibleStaysBounded(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		// A continuation token is always offered; the bounded diagnostic
		// listing must not follow it.
		writeFileList(t, w, []map[string]string{{"id": "1", "name": "relays.pdf"}}, "more")
	})

	names, err := client.ListVisible(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"relays.pdf"}, names)
}
