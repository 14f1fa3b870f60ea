package stream

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestRecv_ChunksThenEOF(testCase *testing.T) {
	consumer, producer := NewPair[string]()

	go func() {
		defer producer.Close()
		for _, chunk := range []string{"a", "b", "c"} {
			if err := producer.Send(chunk); err != nil {
				testCase.Errorf("send: %v", err)
				return
			}
		}
	}()

	var received []string
	for {
		chunk, err := consumer.Recv()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				testCase.Fatalf("expected io.EOF, got %v", err)
			}
			break
		}
		received = append(received, chunk)
	}
	if strings.Join(received, "") != "abc" {
		testCase.Errorf("expected chunks in order 'abc', got %q", strings.Join(received, ""))
	}

	// A clean end is sticky.
	if _, err := consumer.Recv(); !errors.Is(err, io.EOF) {
		testCase.Errorf("expected sticky io.EOF, got %v", err)
	}
}

func TestRecv_TerminalErrorIsSticky(testCase *testing.T) {
	consumer, producer := NewPair[int]()
	boom := errors.New("boom")

	if err := producer.Send(1); err != nil {
		testCase.Fatalf("send: %v", err)
	}
	if err := producer.SendError(boom); err != nil {
		testCase.Fatalf("send error: %v", err)
	}

	if chunk, err := consumer.Recv(); err != nil || chunk != 1 {
		testCase.Fatalf("expected queued chunk before error, got (%d, %v)", chunk, err)
	}
	if _, err := consumer.Recv(); !errors.Is(err, boom) {
		testCase.Fatalf("expected terminal error, got %v", err)
	}
	if _, err := consumer.Recv(); !errors.Is(err, boom) {
		testCase.Errorf("expected sticky terminal error, got %v", err)
	}
}

func TestSend_AfterConsumerClose(testCase *testing.T) {
	consumer, producer := NewPair[string]()
	consumer.Close()

	if err := producer.Send("late"); !errors.Is(err, ErrClosed) {
		testCase.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := producer.SendError(errors.New("boom")); !errors.Is(err, ErrClosed) {
		testCase.Fatalf("expected ErrClosed from SendError, got %v", err)
	}
}

func TestConsumerClose_RecvReportsEOF(testCase *testing.T) {
	consumer, producer := NewPair[string]()
	if err := producer.Send("pending"); err != nil {
		testCase.Fatalf("send: %v", err)
	}
	consumer.Close()

	if _, err := consumer.Recv(); !errors.Is(err, io.EOF) {
		testCase.Errorf("expected io.EOF after Close, got %v", err)
	}
}

func TestSend_AfterProducerClose(testCase *testing.T) {
	_, producer := NewPair[int]()
	producer.Close()
	producer.Close() // idempotent

	if err := producer.Send(1); !errors.Is(err, ErrClosed) {
		testCase.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestSendError_NilBehavesLikeClose(testCase *testing.T) {
	consumer, producer := NewPair[int]()
	if err := producer.SendError(nil); err != nil {
		testCase.Fatalf("send nil error: %v", err)
	}
	if _, err := consumer.Recv(); !errors.Is(err, io.EOF) {
		testCase.Errorf("expected io.EOF, got %v", err)
	}
}

func TestRecv_BlocksUntilChunkArrives(testCase *testing.T) {
	consumer, producer := NewPair[int]()
	received := make(chan int, 1)

	go func() {
		chunk, err := consumer.Recv()
		if err == nil {
			received <- chunk
		}
	}()

	time.Sleep(10 * time.Millisecond)
	if err := producer.Send(99); err != nil {
		testCase.Fatalf("send: %v", err)
	}

	select {
	case got := <-received:
		if got != 99 {
			testCase.Errorf("expected 99, got %d", got)
		}
	case <-time.After(time.Second):
		testCase.Fatal("Recv never returned after Send")
	}
}

func TestCollect_KeepsPartialOnError(testCase *testing.T) {
	consumer, producer := NewPair[string]()
	boom := errors.New("boom")
	producer.Send("a") //nolint:errcheck
	producer.Send("b") //nolint:errcheck
	producer.SendError(boom) //nolint:errcheck

	chunks, err := consumer.Collect()
	if !errors.Is(err, boom) {
		testCase.Fatalf("expected boom, got %v", err)
	}
	if len(chunks) != 2 || chunks[0] != "a" || chunks[1] != "b" {
		testCase.Errorf("expected partial chunks [a b], got %v", chunks)
	}
}

func TestFromSlice_YieldsAllThenEOF(testCase *testing.T) {
	consumer := FromSlice([]int{1, 2, 3})
	chunks, err := consumer.Collect()
	if err != nil {
		testCase.Fatalf("collect: %v", err)
	}
	if len(chunks) != 3 || chunks[0] != 1 || chunks[2] != 3 {
		testCase.Errorf("expected [1 2 3], got %v", chunks)
	}
}

func TestConvert_TransformsChunks(testCase *testing.T) {
	consumer := FromSlice([]int{1, 2, 3})
	doubled := Convert(consumer, func(chunk int) (string, error) {
		return strings.Repeat("x", chunk*2), nil
	})

	chunks, err := doubled.Collect()
	if err != nil {
		testCase.Fatalf("collect: %v", err)
	}
	if len(chunks) != 3 || chunks[2] != "xxxxxx" {
		testCase.Errorf("unexpected chunks: %v", chunks)
	}
}

func TestConvert_TransformErrorIsTerminal(testCase *testing.T) {
	consumer := FromSlice([]string{"ok", "bad", "never"})
	failing := Convert(consumer, func(chunk string) (string, error) {
		if chunk == "bad" {
			return "", fmt.Errorf("reject %q", chunk)
		}
		return chunk, nil
	})

	if chunk, err := failing.Recv(); err != nil || chunk != "ok" {
		testCase.Fatalf("expected first chunk, got (%q, %v)", chunk, err)
	}
	if _, err := failing.Recv(); err == nil || !strings.Contains(err.Error(), "reject") {
		testCase.Fatalf("expected transform error, got %v", err)
	}
	if _, err := failing.Recv(); err == nil || !strings.Contains(err.Error(), "reject") {
		testCase.Errorf("expected sticky transform error, got %v", err)
	}
}

func TestAsAny_ErasesElementType(testCase *testing.T) {
	erased := AsAny(FromSlice([]string{"a", "b"}))
	chunk, err := erased.Recv()
	if err != nil {
		testCase.Fatalf("recv: %v", err)
	}
	if text, ok := chunk.(string); !ok || text != "a" {
		testCase.Errorf("expected string chunk 'a', got %v", chunk)
	}
}

// --- Copy ---

func TestCopy_IndependentReaders(testCase *testing.T) {
	source := FromSlice([]string{"a", "b", "c"})
	copies := source.Copy(3)
	if len(copies) != 3 {
		testCase.Fatalf("expected 3 copies, got %d", len(copies))
	}

	var waitGroup sync.WaitGroup
	results := make([]string, 3)
	for i, reader := range copies {
		waitGroup.Add(1)
		go func(index int, consumer *Consumer[string]) {
			defer waitGroup.Done()
			chunks, err := consumer.Collect()
			if err != nil {
				testCase.Errorf("copy %d: %v", index, err)
				return
			}
			results[index] = strings.Join(chunks, "")
		}(i, reader)
	}
	waitGroup.Wait()

	for i, got := range results {
		if got != "abc" {
			testCase.Errorf("copy %d: expected 'abc', got %q", i, got)
		}
	}
}

func TestCopy_SlowReaderReplaysWhileFrontierBlocks(testCase *testing.T) {
	consumer, producer := NewPair[int]()
	copies := consumer.Copy(2)

	if err := producer.Send(1); err != nil {
		testCase.Fatalf("send: %v", err)
	}

	// The fast copy advances to the frontier and blocks on the empty pair.
	fastDone := make(chan struct{})
	go func() {
		defer close(fastDone)
		if chunk, err := copies[0].Recv(); err != nil || chunk != 1 {
			testCase.Errorf("fast copy: got (%d, %v)", chunk, err)
		}
		copies[0].Recv() //nolint:errcheck // blocks until the producer closes
	}()

	time.Sleep(10 * time.Millisecond)

	// The slow copy must still replay the buffered chunk.
	replayed := make(chan int, 1)
	go func() {
		if chunk, err := copies[1].Recv(); err == nil {
			replayed <- chunk
		}
	}()

	select {
	case got := <-replayed:
		if got != 1 {
			testCase.Errorf("expected replayed chunk 1, got %d", got)
		}
	case <-time.After(time.Second):
		testCase.Fatal("slow copy starved while frontier reader blocked")
	}

	producer.Close()
	<-fastDone
	copies[1].Close()
}

func TestCopy_ClosingEveryCopyReleasesSource(testCase *testing.T) {
	consumer, producer := NewPair[int]()
	copies := consumer.Copy(2)

	copies[0].Close()
	if err := producer.Send(1); err != nil {
		testCase.Fatalf("send with one copy open: %v", err)
	}
	copies[1].Close()

	if err := producer.Send(2); !errors.Is(err, ErrClosed) {
		testCase.Fatalf("expected ErrClosed after all copies closed, got %v", err)
	}
}

func TestCopy_TerminalErrorReachesEveryCopy(testCase *testing.T) {
	consumer, producer := NewPair[int]()
	copies := consumer.Copy(2)
	boom := errors.New("boom")
	producer.Send(7)        //nolint:errcheck
	producer.SendError(boom) //nolint:errcheck

	for i, reader := range copies {
		if chunk, err := reader.Recv(); err != nil || chunk != 7 {
			testCase.Fatalf("copy %d: expected chunk 7, got (%d, %v)", i, chunk, err)
		}
		if _, err := reader.Recv(); !errors.Is(err, boom) {
			testCase.Errorf("copy %d: expected terminal error, got %v", i, err)
		}
	}
}
