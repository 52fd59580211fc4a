package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const interval = 50 * time.Millisecond

// recorder collects values passed to a callback.
type recorder[T any] struct {
	mu    sync.Mutex
	calls []T
	fired chan struct{}
}

func newRecorder[T any]() *recorder[T] {
	return &recorder[T]{fired: make(chan struct{}, 16)}
}

func (r *recorder[T]) record(v T) {
	r.mu.Lock()
	r.calls = append(r.calls, v)
	r.mu.Unlock()
	r.fired <- struct{}{}
}

func (r *recorder[T]) snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.calls...)
}

func (r *recorder[T]) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.fired:
	case <-time.After(time.Second):
		t.Fatal("callback did not fire")
	}
}

func TestDebounceCollapsesBurst(t *testing.T) {
	rec := newRecorder[int]()
	debounced := Debounce(rec.record, interval)

	debounced(1)
	time.Sleep(interval / 5)
	debounced(2)
	time.Sleep(interval / 5)
	last := time.Now()
	debounced(3)

	rec.wait(t)
	assert.GreaterOrEqual(t, time.Since(last), interval)
	time.Sleep(2 * interval)

	assert.Equal(t, []int{3}, rec.snapshot())
}

func TestDebounceFiresAfterQuietPeriod(t *testing.T) {
	rec := newRecorder[int]()
	debounced := Debounce(rec.record, interval)

	start := time.Now()
	debounced(1)
	rec.wait(t)

	assert.GreaterOrEqual(t, time.Since(start), interval)
}

func TestDebounceSpacedCalls(t *testing.T) {
	rec := newRecorder[string]()
	debounced := Debounce(rec.record, interval)

	debounced("a")
	rec.wait(t)
	debounced("b")
	rec.wait(t)

	assert.Equal(t, []string{"a", "b"}, rec.snapshot())
}

func TestDebounceMultipleArguments(t *testing.T) {
	type args struct {
		path string
		n    int
	}
	rec := newRecorder[args]()
	debounced := Debounce(rec.record, interval)

	debounced(args{"index.html", 1})
	debounced(args{"style.css", 2})
	rec.wait(t)

	assert.Equal(t, []args{{"style.css", 2}}, rec.snapshot())
}

func TestDebounceConcurrentCallers(t *testing.T) {
	rec := newRecorder[int]()
	debounced := Debounce(rec.record, interval)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			debounced(i)
		}(i)
	}
	wg.Wait()

	rec.wait(t)
	time.Sleep(2 * interval)
	assert.Len(t, rec.snapshot(), 1)
}

func TestDebounceNonPositiveInterval(t *testing.T) {
	rec := newRecorder[int]()
	debounced := Debounce(rec.record, -time.Second)

	debounced(7)
	rec.wait(t)

	assert.Equal(t, []int{7}, rec.snapshot())
}

type counter struct {
	name string
	rec  *recorder[string]
}

func (c *counter) Hit(label string) {
	c.rec.record(c.name + ":" + label)
}

func TestMethodUsesLatestReceiver(t *testing.T) {
	rec := newRecorder[string]()
	first := &counter{name: "first", rec: rec}
	second := &counter{name: "second", rec: rec}

	hit := Method((*counter).Hit, interval)
	hit(first, "x")
	hit(second, "y")
	rec.wait(t)
	time.Sleep(2 * interval)

	assert.Equal(t, []string{"second:y"}, rec.snapshot())
}

func TestFunc(t *testing.T) {
	rec := newRecorder[struct{}]()
	debounced := Func(func() { rec.record(struct{}{}) }, interval)

	for i := 0; i < 5; i++ {
		debounced()
	}
	rec.wait(t)
	time.Sleep(2 * interval)

	require.Len(t, rec.snapshot(), 1)
}

func TestWrappersAreIndependent(t *testing.T) {
	rec := newRecorder[string]()
	a := Debounce(rec.record, interval)
	b := Debounce(rec.record, interval)

	a("a")
	b("b")
	rec.wait(t)
	rec.wait(t)

	assert.ElementsMatch(t, []string{"a", "b"}, rec.snapshot())
}
