package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Uke-Messaging/uke-pallet/pkg/api/routes"
	"github.com/Uke-Messaging/uke-pallet/pkg/ledger"
	"github.com/Uke-Messaging/uke-pallet/pkg/models"
	"github.com/Uke-Messaging/uke-pallet/pkg/store"
)

func seedDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db")
	st, err := store.Open(path, store.Options{})
	require.NoError(t, err)
	l, err := ledger.New(st, models.DefaultLimits(), nil)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = l.StoreMessage(ctx, "alice", ledger.StoreMessage{
		Message: []byte("hello"), Time: 10, ConvoID: []byte("c1"),
		Recipient: "bob", RecipientName: []byte("bobby"), SenderName: []byte("ally"),
	})
	require.NoError(t, err)
	_, err = l.StoreMessage(ctx, "bob", ledger.StoreMessage{
		Message: []byte("hey"), Time: 11, ConvoID: []byte("c1"), Recipient: "alice",
	})
	require.NoError(t, err)
	require.NoError(t, l.Register(ctx, "alice", []byte("ally")))
	require.NoError(t, st.Close())
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	root := NewRootCmd("test", "none")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestInspectCountsKeyTypes(t *testing.T) {
	db := seedDB(t)
	out, err := run(t, "inspect", db)
	require.NoError(t, err)

	assert.Regexp(t, `message\s+2`, out)
	assert.Regexp(t, `message_count\s+1`, out)
	assert.Regexp(t, `active_flag\s+1`, out)
	assert.Regexp(t, `identity_index\s+2`, out)
	assert.Regexp(t, `username\s+1`, out)
	assert.Regexp(t, `total\s+7`, out)
}

func TestThreadPrintsMessagesInOrder(t *testing.T) {
	db := seedDB(t)
	out, err := run(t, "thread", db, "c1")
	require.NoError(t, err)

	var msgs []routes.MessageJSON
	require.NoError(t, json.Unmarshal([]byte(out), &msgs))
	require.Len(t, msgs, 2)
	assert.Equal(t, []byte("hello"), msgs[0].Content)
	assert.Equal(t, "bob", msgs[1].Sender)
}

func TestActiveAndUser(t *testing.T) {
	db := seedDB(t)
	out, err := run(t, "active", db, "bob")
	require.NoError(t, err)
	var list []routes.ActiveConversationJSON
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "alice", list[0].Initiator)
	assert.Equal(t, []byte("bobby"), list[0].RecipientName)

	out, err = run(t, "user", db, "ally")
	require.NoError(t, err)
	assert.Contains(t, out, `"account": "alice"`)

	_, err = run(t, "user", db, "nobody")
	assert.ErrorContains(t, err, "not registered")
}

func TestSignUsesBackendKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/_sign", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer sk_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(map[string]string{"userId": body["userId"], "signature": "sig-" + body["userId"]})
	}))
	defer srv.Close()

	out, err := run(t, "sign", "alice", "--host", srv.URL, "--backend-key", "sk_test")
	require.NoError(t, err)
	assert.Equal(t, "sig-alice", strings.TrimSpace(out))

	_, err = run(t, "sign", "alice", "--host", srv.URL, "--backend-key", "wrong")
	assert.ErrorContains(t, err, "status 401")
}

func TestProfileRoundTripAndPick(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.yaml")
	require.NoError(t, SaveProfile(&Profile{Host: "http://h:1", BackendKey: "sk"}, path))
	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://h:1", p.Host)

	assert.Equal(t, "flag", pick(true, "flag", "prof", "def"))
	assert.Equal(t, "prof", pick(false, "flagdefault", "prof", "def"))
	assert.Equal(t, "flagdefault", pick(false, "flagdefault", "", "def"))
	assert.Equal(t, "def", pick(false, "", "", "def"))
}

func TestExplicitMissingProfileFails(t *testing.T) {
	_, err := run(t, "sign", "alice", "--config", filepath.Join(t.TempDir(), "nope.yaml"), "--backend-key", "k")
	assert.Error(t, err)
}

func TestBuildTargets(t *testing.T) {
	targets, err := buildTargets(BenchConfig{
		Host: "http://h/", BackendKey: "sk", User: "u", RPS: 10, Duration: time.Second,
		Pattern: patternStore, Convos: 3, PayloadSize: 4,
	})
	require.NoError(t, err)
	require.Len(t, targets, 10)
	assert.Equal(t, "http://h/v1/messages", targets[0].URL)

	var body struct {
		ConvoID []byte `json:"convo_id"`
		Message []byte `json:"message"`
	}
	require.NoError(t, json.Unmarshal(targets[4].Body, &body))
	assert.Equal(t, []byte("b1"), body.ConvoID)
	assert.Equal(t, []byte("xxxx"), body.Message)

	reads, err := buildTargets(BenchConfig{Host: "http://h", RPS: 2, Duration: time.Second, Pattern: patternRead, Convos: 1})
	require.NoError(t, err)
	assert.Equal(t, "http://h/v1/conversations/"+routes.EncodeSegment([]byte("b0"))+"/messages", reads[1].URL)

	_, err = buildTargets(BenchConfig{RPS: 1, Duration: time.Second, Pattern: "bogus", Convos: 1})
	assert.Error(t, err)
}
