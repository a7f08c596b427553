package bus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPeer = "speech"

// serveBus hosts a one-connection bus peer that feeds every inbound frame
// to handle, which replies over the same connection.
func serveBus(t *testing.T, handle func(c *ws.Conn, m Message)) string {
	t.Helper()

	upgrader := ws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var m Message
			if err := conn.ReadJSON(&m); err != nil {
				return
			}
			handle(conn, m)
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *Link {
	t.Helper()
	l, err := Dial(url, testPeer, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestListenRoundTrip(t *testing.T) {
	url := serveBus(t, func(c *ws.Conn, m Message) {
		assert.Equal(t, shardName, m.From)
		assert.Equal(t, testPeer, m.To)
		if m.Kind == KindListen {
			c.WriteJSON(Message{From: testPeer, To: shardName, Kind: KindResult, Content: "forty two"})
		}
	})

	got, err := dial(t, url).Listen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "forty two", got)
}

func TestListenSurfacesRemoteError(t *testing.T) {
	url := serveBus(t, func(c *ws.Conn, m Message) {
		if m.Kind == KindListen {
			c.WriteJSON(Message{From: testPeer, To: shardName, Kind: KindListenErr, Content: "mic unavailable"})
		}
	})

	_, err := dial(t, url).Listen(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mic unavailable")
}

func TestListenIgnoresFramesForOtherPeers(t *testing.T) {
	url := serveBus(t, func(c *ws.Conn, m Message) {
		if m.Kind == KindListen {
			// not ours: wrong recipient, must be dropped
			c.WriteJSON(Message{From: testPeer, To: "display", Kind: KindResult, Content: "stolen"})
			c.WriteJSON(Message{From: testPeer, To: shardName, Kind: KindResult, Content: "forty two"})
		}
	})

	got, err := dial(t, url).Listen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "forty two", got)
}

func TestListenCancelSendsAbortFrame(t *testing.T) {
	requested := make(chan struct{}, 1)
	aborted := make(chan struct{}, 1)
	url := serveBus(t, func(c *ws.Conn, m Message) {
		switch m.Kind {
		case KindListen:
			requested <- struct{}{} // never answer: the peer hangs
		case KindListenAbort:
			aborted <- struct{}{}
		}
	})

	l := dial(t, url)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := l.Listen(ctx)
		done <- err
	}()

	select {
	case <-requested:
	case <-time.After(time.Second):
		t.Fatal("peer never saw the listen request")
	}
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("listen did not return after cancel")
	}
	select {
	case <-aborted:
	case <-time.After(time.Second):
		t.Fatal("peer never saw the abort frame")
	}
}

func TestSpeakWaitsForDone(t *testing.T) {
	heard := make(chan string, 1)
	url := serveBus(t, func(c *ws.Conn, m Message) {
		if m.Kind == KindSpeak {
			heard <- m.Content
			c.WriteJSON(Message{From: testPeer, To: shardName, Kind: KindSpeakDone})
		}
	})

	require.NoError(t, dial(t, url).Speak(context.Background(), "hello there"))
	assert.Equal(t, "hello there", <-heard)
}

func TestSpeakSurfacesRemoteError(t *testing.T) {
	url := serveBus(t, func(c *ws.Conn, m Message) {
		if m.Kind == KindSpeak {
			c.WriteJSON(Message{From: testPeer, To: shardName, Kind: KindSpeakErr, Content: "no output device"})
		}
	})

	err := dial(t, url).Speak(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no output device")
}

func TestSpeakCancelSendsCancelFrame(t *testing.T) {
	requested := make(chan struct{}, 1)
	cancelled := make(chan struct{}, 1)
	url := serveBus(t, func(c *ws.Conn, m Message) {
		switch m.Kind {
		case KindSpeak:
			requested <- struct{}{}
		case KindSpeakCancel:
			cancelled <- struct{}{}
		}
	})

	l := dial(t, url)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- l.Speak(ctx, "a very long sentence") }()

	select {
	case <-requested:
	case <-time.After(time.Second):
		t.Fatal("peer never saw the speak request")
	}
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("speak did not return after cancel")
	}
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("peer never saw the cancel frame")
	}
}
