package workerpool

import (
	"bytes"
	"errors"
	"sync"
	"testing"
)

func TestRunReturnsResult(t *testing.T) {
	p := New()
	defer p.Close()

	out, err := p.Run(func() ([]byte, error) { return []byte("ok"), nil })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !bytes.Equal(out, []byte("ok")) {
		t.Fatalf("got %q", out)
	}
}

func TestRunPropagatesError(t *testing.T) {
	p := New()
	defer p.Close()

	wantErr := errors.New("boom")
	_, err := p.Run(func() ([]byte, error) { return nil, wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
}

func TestRunHandlesConcurrentCallers(t *testing.T) {
	p := New()
	defer p.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			out, err := p.Run(func() ([]byte, error) { return []byte{byte(n)}, nil })
			if err != nil {
				t.Errorf("Run: %v", err)
			}
			if len(out) != 1 || out[0] != byte(n) {
				t.Errorf("got %v, want [%d]", out, n)
			}
		}(i)
	}
	wg.Wait()
}
