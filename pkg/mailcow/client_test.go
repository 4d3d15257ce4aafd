package mailcow

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", 5*time.Second)
}

func successBody(w http.ResponseWriter) {
	_ = json.NewEncoder(w).Encode([]map[string]any{{"type": "success", "msg": "ok"}})
}

func Test_CreateMailbox_Payload(t *testing.T) {
	var payload map[string]any
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/add/mailbox", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		successBody(w)
	})

	err := client.CreateMailbox(context.Background(), CreateMailboxParams{
		Address:     "alice@example.com",
		DisplayName: "Alice A.",
		Password:    "initial-pw",
	})
	require.NoError(t, err)

	require.Equal(t, "alice", payload["local_part"])
	require.Equal(t, "example.com", payload["domain"])
	require.Equal(t, "Alice A.", payload["name"])
	require.Equal(t, "initial-pw", payload["password"])
	require.Equal(t, "initial-pw", payload["password2"])
	require.Equal(t, "1", payload["force_pw_update"])
	require.Equal(t, "1", payload["active"])
}

func Test_CreateMailbox_ObjectExistsIsSuccess(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"type": "danger", "msg": []any{"object_exists", "alice@example.com"}},
		})
	})

	err := client.CreateMailbox(context.Background(), CreateMailboxParams{Address: "alice@example.com"})
	require.NoError(t, err)
}

func Test_CreateMailbox_DangerIsError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"type": "danger", "msg": []any{"domain_invalid", "nope.example"}},
		})
	})

	err := client.CreateMailbox(context.Background(), CreateMailboxParams{Address: "bob@nope.example"})
	require.Error(t, err)
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	require.Equal(t, "add/mailbox", upstream.Op)
	require.Contains(t, upstream.Error(), "domain_invalid")
	require.NotContains(t, upstream.Error(), "test-key")
}

func Test_GetMailbox_NotFound(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Mailcow answers {} for unknown mailboxes, status 200.
		_, _ = w.Write([]byte("{}"))
	})

	_, err := client.GetMailbox(context.Background(), "ghost@example.com")
	require.ErrorIs(t, err, ErrNotFound)
}

func Test_GetMailbox_Found(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/get/mailbox/alice@example.com", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"username": "alice@example.com", "name": "Alice", "active_int": 1,
		})
	})

	box, err := client.GetMailbox(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", box.Username)
	require.Equal(t, 1, box.Active)
}

func Test_ListMailboxes_EmptyDomainObject(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}"))
	})

	boxes, err := client.ListMailboxes(context.Background(), "example.com")
	require.NoError(t, err)
	require.Empty(t, boxes)
}

func Test_SetCustomAttribute_Payload(t *testing.T) {
	var payload struct {
		Attr struct {
			Attribute []string `json:"attribute"`
			Value     []string `json:"value"`
		} `json:"attr"`
		Items []string `json:"items"`
	}
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/edit/mailbox/custom-attribute", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		successBody(w)
	})

	err := client.SetCustomAttribute(context.Background(),
		[]string{"alice@example.com"}, "groups", []string{"engineering", "ops"})
	require.NoError(t, err)

	// Mailcow wants the attribute name repeated once per value.
	require.Equal(t, []string{"groups", "groups"}, payload.Attr.Attribute)
	require.Equal(t, []string{"engineering", "ops"}, payload.Attr.Value)
	require.Equal(t, []string{"alice@example.com"}, payload.Items)
}

func Test_AddDomainAdmin_ConflictIsSuccess(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	err := client.AddDomainAdmin(context.Background(), "alice", "example.com", "pw")
	require.NoError(t, err)
}

func Test_DeleteDomainAdmin_Body(t *testing.T) {
	var body []string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/delete/domain-admin", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		successBody(w)
	})

	require.NoError(t, client.DeleteDomainAdmin(context.Background(), "alice"))
	require.Equal(t, []string{"alice"}, body)
}

func Test_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server notices the client disconnecting and
		// cancels the request context; otherwise srv.Close deadlocks.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, "key", 50*time.Millisecond)

	err := client.CreateMailbox(context.Background(), CreateMailboxParams{Address: "slow@example.com"})
	require.Error(t, err)
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
}
