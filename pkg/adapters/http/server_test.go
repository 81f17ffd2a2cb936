package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/parley"
	httpAdapter "github.com/aretw0/parley/pkg/adapters/http"
	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/dsl"
	"github.com/aretw0/parley/pkg/session"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	b := dsl.New("tavern").Participants("barkeep").Var("gold", domain.Int(5))
	b.Add("greet").Says("barkeep", "What'll it be?").
		Option("ale", "An ale.", domain.Compare("gold", domain.OpGreaterOrEqual, domain.Int(2))).
		Option("bye", "Nothing.")
	b.Add("ale").Says("barkeep", "Here you go.").OnEnter(domain.ModifyVar("gold", domain.Int(-2))).Go("bye")
	b.Add("bye").End()

	eng := parley.New()
	require.NoError(t, eng.Register(b.MustBuild()))
	sessions := eng.Sessions(session.NewManager(memory.NewStore()))

	srv := httptest.NewServer(httpAdapter.NewHandler(sessions, eng))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeTurn(t *testing.T, resp *http.Response) parley.Turn {
	t.Helper()
	var turn parley.Turn
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&turn))
	return turn
}

func TestHealthAndInfo(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/info")
	require.NoError(t, err)
	defer resp.Body.Close()
	var info map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, "parley-http", info["app"])
	assert.Equal(t, strings.TrimSpace(parley.Version), info["version"])
}

func TestDialogues(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/dialogues")
	require.NoError(t, err)
	defer resp.Body.Close()
	var ids []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ids))
	assert.Equal(t, []string{"tavern"}, ids)

	resp, err = http.Get(srv.URL + "/dialogues/tavern")
	require.NoError(t, err)
	defer resp.Body.Close()
	var in parley.Inspection
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&in))
	assert.Equal(t, "tavern", in.Dialogue.ID)
	assert.Len(t, in.Dialogue.Nodes, 3)

	resp, err = http.Get(srv.URL + "/dialogues/tavern/graph")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "graph TD"))

	resp, err = http.Get(srv.URL + "/dialogues/nowhere")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionLifecycle(t *testing.T) {
	srv := newServer(t)

	resp := postJSON(t, srv.URL+"/sessions", httpAdapter.StartRequest{DialogueID: "tavern", SessionID: "s1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	turn := decodeTurn(t, resp)
	assert.Equal(t, "greet", turn.View.NodeID)
	assert.Len(t, turn.View.Options, 2)

	resp = postJSON(t, srv.URL+"/sessions", httpAdapter.StartRequest{DialogueID: "tavern", SessionID: "s1"})
	assert.Equal(t, http.StatusOK, resp.StatusCode, "starting twice resumes")

	resp = postJSON(t, srv.URL+"/sessions/s1/choose", httpAdapter.ChooseRequest{Index: 7})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/sessions/s1/choose", httpAdapter.ChooseRequest{Index: 0})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	turn = decodeTurn(t, resp)
	assert.Equal(t, "ale", turn.View.NodeID)
	require.NotNil(t, turn.Diff)
	assert.Equal(t, domain.Int(3), *turn.Diff.Variables["gold"])

	resp = postJSON(t, srv.URL+"/sessions/s1/choose", httpAdapter.ChooseRequest{Index: 0})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decodeTurn(t, resp).View.Finished)

	resp = postJSON(t, srv.URL+"/sessions/s1/choose", httpAdapter.ChooseRequest{Index: 0})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/sessions/s1", nil)
	require.NoError(t, err)
	del, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer del.Body.Close()
	assert.Equal(t, http.StatusNoContent, del.StatusCode)

	get, err := http.Get(srv.URL + "/sessions/s1")
	require.NoError(t, err)
	defer get.Body.Close()
	assert.Equal(t, http.StatusNotFound, get.StatusCode)
}

func TestStartSession_BadRequest(t *testing.T) {
	srv := newServer(t)

	resp := postJSON(t, srv.URL+"/sessions", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/sessions", httpAdapter.StartRequest{DialogueID: "nowhere"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSubscribeEvents_Session(t *testing.T) {
	srv := newServer(t)
	postJSON(t, srv.URL+"/sessions", httpAdapter.StartRequest{DialogueID: "tavern", SessionID: "s1"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events?session_id=s1&watch=variables", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	readData := func() string {
		for lines.Scan() {
			if data, ok := strings.CutPrefix(lines.Text(), "data: "); ok {
				return data
			}
		}
		return ""
	}
	require.Equal(t, "connected", readData())

	postJSON(t, srv.URL+"/sessions/s1/choose", httpAdapter.ChooseRequest{Index: 0})

	var diff domain.SnapshotDiff
	require.NoError(t, json.Unmarshal([]byte(readData()), &diff))
	assert.Equal(t, "s1", diff.SessionID)
	require.NotNil(t, diff.CurrentNodeID)
	assert.Equal(t, "ale", *diff.CurrentNodeID)
}

func TestSubscribeEvents_WatchUnsupported(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestStream_Websocket(t *testing.T) {
	srv := newServer(t)
	postJSON(t, srv.URL+"/sessions", httpAdapter.StartRequest{DialogueID: "tavern", SessionID: "s1"})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/s1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first httpAdapter.StreamMessage
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "turn", first.Type)
	require.NotNil(t, first.Turn)
	assert.Equal(t, "greet", first.Turn.View.NodeID)

	require.NoError(t, conn.WriteJSON(httpAdapter.StreamCommand{Action: "choose", Index: 0}))

	got := map[string]httpAdapter.StreamMessage{}
	for len(got) < 2 {
		var msg httpAdapter.StreamMessage
		require.NoError(t, conn.ReadJSON(&msg))
		got[msg.Type] = msg
	}
	require.Contains(t, got, "turn")
	require.Contains(t, got, "diff")
	assert.Equal(t, "ale", got["turn"].Turn.View.NodeID)
	assert.Contains(t, string(got["diff"].Diff), `"current_node_id":"ale"`)

	require.NoError(t, conn.WriteJSON(httpAdapter.StreamCommand{Action: "dance"}))
	var reply httpAdapter.StreamMessage
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
	assert.Contains(t, reply.Error, "unknown action")
}

func TestStream_MissingSession(t *testing.T) {
	srv := newServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/nope/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
