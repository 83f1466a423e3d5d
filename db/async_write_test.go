package db

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"genfill/logging"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestAsyncWriter_ProcessesAndDrains(t *testing.T) {
	var mu sync.Mutex
	var got []any
	handler := func(op WriteOperation) error {
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		got = append(got, op.Data)
		mu.Unlock()
		return nil
	}

	writer := NewAsyncWriter(handler, logging.NewNop())
	if writer.Write("early") {
		t.Error("Write() before Start should be rejected")
	}

	writer.Start()
	writer.Start()
	for _, v := range []string{"first", "second", "third"} {
		if !writer.Write(v) {
			t.Errorf("Write(%q) = false", v)
		}
	}
	if !writer.Stop() {
		t.Fatal("Stop() timed out")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 || got[0] != "first" || got[2] != "third" {
		t.Errorf("processed = %v, want [first second third]", got)
	}
	if writer.IsStarted() {
		t.Error("IsStarted() = true after Stop")
	}
	if writer.Write("late") {
		t.Error("Write() after Stop should be rejected")
	}
}

func TestAsyncWriter_FullBuffer(t *testing.T) {
	release := make(chan struct{})
	handler := func(op WriteOperation) error {
		<-release
		return nil
	}
	writer := NewAsyncWriterWithConfig(handler, logging.NewNop(), AsyncWriterConfig{ChannelCapacity: 1, DrainTimeout: time.Second})
	writer.Start()

	accepted := 0
	for i := 0; i < 5; i++ {
		if writer.Write(i) {
			accepted++
		}
	}
	if accepted < 1 || accepted > 2 {
		t.Errorf("accepted = %d, want 1 or 2 with one slot and one in flight", accepted)
	}

	close(release)
	writer.Stop()
}

func TestAsyncWriter_LogsFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	var calls atomic.Int32
	handler := func(op WriteOperation) error {
		calls.Add(1)
		return errors.New("disk full")
	}

	writer := NewAsyncWriter(handler, logging.NewFromZap(zap.New(core)))
	writer.Start()
	writer.Write("x")
	writer.Write("y")
	writer.Stop()

	if writer.Failed() != 2 {
		t.Errorf("Failed() = %d, want 2", writer.Failed())
	}
	if n := logs.FilterMessage("async write failed").Len(); n != 2 {
		t.Errorf("logged failures = %d, want 2", n)
	}
}

func TestAsyncWriter_StopTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	handler := func(op WriteOperation) error {
		<-block
		return nil
	}
	writer := NewAsyncWriterWithConfig(handler, logging.NewNop(), AsyncWriterConfig{ChannelCapacity: 4, DrainTimeout: 20 * time.Millisecond})
	writer.Start()
	writer.Write("stuck")

	if writer.Stop() {
		t.Error("Stop() = true, want false when the handler never returns")
	}
	if !writer.Stop() {
		t.Error("second Stop() should return true immediately")
	}
}
