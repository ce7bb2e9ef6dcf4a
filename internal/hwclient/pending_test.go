package hwclient

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestPendingTakeClaimsExactlyOnce(t *testing.T) {
	tbl := newPendingTable()
	tbl.add("a", time.Minute)

	if p := tbl.take("a"); p == nil {
		t.Fatalf("first take returned nil")
	}
	if p := tbl.take("a"); p != nil {
		t.Fatalf("second take returned the same entry")
	}
	if tbl.size() != 0 {
		t.Fatalf("size = %d, want 0", tbl.size())
	}
}

func TestPendingTimeoutRemovesEntryAndDelivers(t *testing.T) {
	tbl := newPendingTable()
	p := tbl.add("a", 20*time.Millisecond)

	res := <-p.ch
	if !errors.Is(res.err, ErrRequestTimeout) {
		t.Fatalf("err = %v, want ErrRequestTimeout", res.err)
	}
	if tbl.size() != 0 {
		t.Fatalf("entry survived its own timeout")
	}
	// запись снята — поздний ответ взять нечего
	if q := tbl.take("a"); q != nil {
		t.Fatalf("take found entry after timeout")
	}
}

func TestPendingResponseBeatsTimeout(t *testing.T) {
	tbl := newPendingTable()
	p := tbl.add("a", 40*time.Millisecond)

	q := tbl.take("a")
	if q == nil {
		t.Fatalf("take returned nil")
	}
	q.ch <- result{env: NewEnvelope("pong")}

	res := <-p.ch
	if res.err != nil || res.env.Type != "pong" {
		t.Fatalf("got %v / %v, want pong", res.env, res.err)
	}

	// таймер снят вместе с записью: второго исхода не будет
	time.Sleep(60 * time.Millisecond)
	select {
	case extra := <-p.ch:
		t.Fatalf("second outcome delivered: %v / %v", extra.env, extra.err)
	default:
	}
}

func TestPendingFailAll(t *testing.T) {
	tbl := newPendingTable()
	ps := []*pending{
		tbl.add("a", time.Minute),
		tbl.add("b", time.Minute),
		tbl.add("c", time.Minute),
	}

	tbl.failAll(ErrConnectionLost)

	for _, p := range ps {
		res := <-p.ch
		if !errors.Is(res.err, ErrConnectionLost) {
			t.Fatalf("entry %s err = %v, want ErrConnectionLost", p.id, res.err)
		}
	}
	if tbl.size() != 0 {
		t.Fatalf("size = %d after failAll", tbl.size())
	}
}

func TestPendingAddRacesTimeoutAndFailAll(t *testing.T) {
	// add с крошечным таймаутом наперегонки с failAll: каждая запись
	// обязана получить ровно один исход — таймаут или сброс, таблица в
	// конце пуста.
	tbl := newPendingTable()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 150; i++ {
			p := tbl.add(fmt.Sprintf("r-%d", i), time.Millisecond)
			res := <-p.ch
			if !errors.Is(res.err, ErrRequestTimeout) && !errors.Is(res.err, ErrConnectionLost) {
				t.Errorf("entry %d err = %v, want timeout or connection lost", i, res.err)
				return
			}
		}
	}()

	for i := 0; i < 40; i++ {
		tbl.failAll(ErrConnectionLost)
		time.Sleep(time.Millisecond)
	}
	<-done

	if n := tbl.size(); n != 0 {
		t.Fatalf("size = %d after the dust settled, want 0", n)
	}
}

func TestPendingDropLeavesNoOutcome(t *testing.T) {
	tbl := newPendingTable()
	p := tbl.add("a", 30*time.Millisecond)
	tbl.drop("a")

	if tbl.size() != 0 {
		t.Fatalf("entry survived drop")
	}
	time.Sleep(50 * time.Millisecond)
	select {
	case res := <-p.ch:
		t.Fatalf("dropped entry delivered %v / %v", res.env, res.err)
	default:
	}
}

func TestNextRequestIDUnique(t *testing.T) {
	hw := New(Config{ServerURL: "ws://test.invalid/ws", Logger: quietLogger()})

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := hw.nextRequestID()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
		if !strings.Contains(id, "-") {
			t.Fatalf("id %q not in seq-stamp form", id)
		}
	}
}
