package realtime

import (
	"testing"
	"time"
)

// newTestClient создает клиента без реального WebSocket-соединения:
// цикл хаба трогает только канал send и boardID
func newTestClient(h *Hub, boardID int) *Client {
	return &Client{hub: h, send: make(chan []byte, 16), boardID: boardID}
}

// TestHubBroadcast проверяет, что сообщение получают только подписчики своей доски
func TestHubBroadcast(t *testing.T) {
	h := NewHub()
	go h.Run()

	c1 := newTestClient(h, 7)
	c2 := newTestClient(h, 8)
	h.register <- c1
	h.register <- c2

	h.Notify(7, []byte(`{"action":"task.moved"}`))

	select {
	case data := <-c1.send:
		if string(data) != `{"action":"task.moved"}` {
			t.Errorf("unexpected payload: %s", data)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber of board 7 did not receive the event")
	}

	select {
	case data := <-c2.send:
		t.Errorf("subscriber of board 8 must not receive the event, got %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestHubUnregister проверяет отписку клиента: канал send закрывается,
// дальнейшие рассылки его не достигают
func TestHubUnregister(t *testing.T) {
	h := NewHub()
	go h.Run()

	c := newTestClient(h, 7)
	h.register <- c
	h.unregister <- c

	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("expected closed send channel")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed on unregister")
	}
}

// TestHubSlowClient проверяет отключение клиента с переполненным буфером
func TestHubSlowClient(t *testing.T) {
	h := NewHub()
	c := &Client{hub: h, send: make(chan []byte), boardID: 7}
	go h.Run()
	h.register <- c

	// клиент никого не читает: первая же рассылка его отключает
	h.Notify(7, []byte("drop me"))

	// синхронизируемся с циклом хаба: пока мы блокируемся на регистрации,
	// рассылка обрабатывается без готового получателя на c.send
	h.register <- newTestClient(h, 99)

	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("expected closed send channel for slow client")
		}
	case <-time.After(time.Second):
		t.Fatal("slow client was not disconnected")
	}
}

// TestNotify_NonBlocking проверяет, что Notify не блокируется без работающего цикла хаба
func TestNotify_NonBlocking(t *testing.T) {
	h := NewHub()
	// цикл хаба не запущен: после заполнения буфера события молча отбрасываются
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			h.Notify(7, []byte("event"))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify must never block the caller")
	}
}
