// Package bus implements the speech capabilities against a remote
// collaborator reached over a websocket bus: the daemon sends listen/speak
// requests and the device on the other end streams back typed events.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	log "log/slog"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"
)

// Message is one bus frame. Kind drives the protocol; Content carries the
// transcript or the text to synthesize.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Kind    string `json:"kind"`
	Content string `json:"content,omitempty"`
}

const (
	KindListen      = "listen"
	KindListenAbort = "listen.abort"
	KindResult      = "listen.result"
	KindListenErr   = "listen.error"
	KindSpeak       = "speak"
	KindSpeakCancel = "speak.cancel"
	KindSpeakDone   = "speak.done"
	KindSpeakErr    = "speak.error"
)

const shardName = "alive"

// Link is a reconnecting websocket connection to the speech collaborator.
// It implements both speech.Recognizer and speech.Synthesizer; the Engine
// on top guarantees at most one listen and one speak are pending at a time.
type Link struct {
	url    string
	reconn time.Duration
	peer   string

	writeMu sync.Mutex
	conn    *ws.Conn
	closing atomic.Bool

	mu        sync.Mutex
	listening chan Message // waiter for the pending listen, nil when idle
	speaking  chan Message
}

// Dial connects to the bus and starts the read loop. reconn is the pause
// between redial attempts after the peer drops the connection.
func Dial(url, peer string, reconn time.Duration) (*Link, error) {
	if reconn <= 0 {
		reconn = time.Second
	}
	l := &Link{url: url, peer: peer, reconn: reconn}

	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial bus: %w", err)
	}
	l.conn = conn
	log.Info("connected to speech bus", "url", url, "peer", peer)

	go l.readLoop()
	return l, nil
}

func (l *Link) Close() error {
	l.closing.Store(true)
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	return l.conn.Close()
}

func (l *Link) send(kind, content string) error {
	data, err := json.Marshal(Message{From: shardName, To: l.peer, Kind: kind, Content: content})
	if err != nil {
		return err
	}
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	return l.conn.WriteMessage(ws.TextMessage, data)
}

func (l *Link) readLoop() {
	for {
		_, raw, err := l.conn.ReadMessage()
		if err != nil {
			if l.closing.Load() {
				return
			}
			log.Warn("speech bus dropped, reconnecting", "url", l.url, "err", err)
			l.redial()
			continue
		}

		var m Message
		if err := json.Unmarshal(raw, &m); err != nil {
			log.Warn("unparseable bus frame", "err", err)
			continue
		}
		if m.To != shardName {
			continue
		}
		l.dispatch(m)
	}
}

func (l *Link) dispatch(m Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch m.Kind {
	case KindResult, KindListenErr:
		if l.listening != nil {
			l.listening <- m
			l.listening = nil
		}
	case KindSpeakDone, KindSpeakErr:
		if l.speaking != nil {
			l.speaking <- m
			l.speaking = nil
		}
	default:
		log.Debug("ignoring bus frame", "kind", m.Kind)
	}
}

func (l *Link) redial() {
	for {
		if l.closing.Load() {
			return
		}
		conn, _, err := ws.DefaultDialer.Dial(l.url, nil)
		if err == nil {
			l.writeMu.Lock()
			l.conn = conn
			l.writeMu.Unlock()
			log.Info("speech bus reconnected", "url", l.url)
			return
		}
		time.Sleep(l.reconn)
	}
}

func (l *Link) install(which *chan Message) chan Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch := make(chan Message, 1)
	*which = ch
	return ch
}

func (l *Link) clear(which *chan Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*which = nil
}

// Listen asks the collaborator to capture one utterance and waits for the
// result event.
func (l *Link) Listen(ctx context.Context) (string, error) {
	ch := l.install(&l.listening)
	defer l.clear(&l.listening)

	if err := l.send(KindListen, ""); err != nil {
		return "", fmt.Errorf("request capture: %w", err)
	}

	select {
	case m := <-ch:
		if m.Kind == KindListenErr {
			return "", fmt.Errorf("remote capture: %s", m.Content)
		}
		return m.Content, nil
	case <-ctx.Done():
		_ = l.send(KindListenAbort, "")
		return "", ctx.Err()
	}
}

// Abort cancels a pending capture. The waiter, if any, is released with an
// error event from the peer or by its context; Abort itself does not block.
func (l *Link) Abort() {
	if err := l.send(KindListenAbort, ""); err != nil {
		log.Debug("abort send failed", "err", err)
	}
}

// Speak asks the collaborator to play one utterance and waits for playback
// to end.
func (l *Link) Speak(ctx context.Context, text string) error {
	ch := l.install(&l.speaking)
	defer l.clear(&l.speaking)

	if err := l.send(KindSpeak, text); err != nil {
		return fmt.Errorf("request playback: %w", err)
	}

	select {
	case m := <-ch:
		if m.Kind == KindSpeakErr {
			return fmt.Errorf("remote playback: %s", m.Content)
		}
		return nil
	case <-ctx.Done():
		_ = l.send(KindSpeakCancel, "")
		return ctx.Err()
	}
}

// Cancel stops in-flight playback on the peer.
func (l *Link) Cancel() {
	if err := l.send(KindSpeakCancel, ""); err != nil {
		log.Debug("cancel send failed", "err", err)
	}
}
