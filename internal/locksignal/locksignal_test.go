package locksignal

import (
	"sync"
	"testing"
	"time"

	"github.com/sharingway-go/sharingway/internal/sherrors"
)

func TestAcquireReleaseRoundTrip(t *testing.T) {
	p, err := Open("sharingway-test-lock-basic")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	abandoned, err := p.Acquire(time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if abandoned {
		t.Fatalf("first acquire on a fresh pair must not report abandoned")
	}
	if err := p.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestWaitTimesOutWithoutSignal(t *testing.T) {
	p, err := Open("sharingway-test-lock-timeout")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	start := time.Now()
	signalled, err := p.Wait(50 * time.Millisecond)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if signalled {
		t.Fatalf("Wait must not report signalled with nothing signalling")
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("Wait returned too early: %v", elapsed)
	}
}

func TestSignalWakesWaiter(t *testing.T) {
	writer, err := Open("sharingway-test-lock-wake")
	if err != nil {
		t.Fatalf("Open writer: %v", err)
	}
	defer writer.Close()

	reader, err := Open("sharingway-test-lock-wake")
	if err != nil {
		t.Fatalf("Open reader: %v", err)
	}
	defer reader.Close()

	var wg sync.WaitGroup
	results := make(chan bool, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		signalled, err := reader.Wait(2 * time.Second)
		if err != nil {
			t.Errorf("Wait: %v", err)
			return
		}
		results <- signalled
	}()

	time.Sleep(20 * time.Millisecond)
	if err := writer.Signal(); err != nil {
		t.Fatalf("Signal: %v", err)
	}

	wg.Wait()
	select {
	case signalled := <-results:
		if !signalled {
			t.Fatalf("waiter did not observe the signal")
		}
	default:
		t.Fatalf("waiter goroutine produced no result")
	}
}

func TestAcquireTimesOutWhenHeldElsewhere(t *testing.T) {
	holder, err := Open("sharingway-test-lock-contend")
	if err != nil {
		t.Fatalf("Open holder: %v", err)
	}
	defer holder.Close()

	contender, err := Open("sharingway-test-lock-contend")
	if err != nil {
		t.Fatalf("Open contender: %v", err)
	}
	defer contender.Close()

	if _, err := holder.Acquire(time.Second); err != nil {
		t.Fatalf("holder Acquire: %v", err)
	}
	defer holder.Release()

	if _, err := contender.Acquire(50 * time.Millisecond); !sherrors.Is(err, sherrors.ErrTimeout) {
		t.Fatalf("want ErrTimeout, got %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	p, err := Open("sharingway-test-lock-close")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := p.Acquire(time.Millisecond); !sherrors.Is(err, sherrors.ErrNotAttached) {
		t.Fatalf("want ErrNotAttached after Close, got %v", err)
	}
}
