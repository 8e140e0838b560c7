package drive_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jordansepetys/AibaPM-Notes/internal/drive"
	"github.com/jordansepetys/AibaPM-Notes/internal/plan"
	"github.com/jordansepetys/AibaPM-Notes/internal/stt"
)

// scriptedClient returns the scripted errors for each call in order; once the
// script runs out it succeeds with a result derived from the path.
type scriptedClient struct {
	script []error

	calls []string
}

func (c *scriptedClient) Transcribe(_ context.Context, audioPath string) (stt.Result, error) {
	c.calls = append(c.calls, audioPath)
	if len(c.script) > 0 {
		err := c.script[0]
		c.script = c.script[1:]
		if err != nil {
			return stt.Result{}, err
		}
	}
	return stt.Result{Text: "text of " + audioPath, Language: "english"}, nil
}

// fakeSleep records requested delays without waiting.
type fakeSleep struct {
	delays []time.Duration
}

func (f *fakeSleep) sleep(_ context.Context, d time.Duration) error {
	f.delays = append(f.delays, d)
	return nil
}

func chunks(n int) []plan.Entry {
	out := make([]plan.Entry, n)
	for i := range out {
		out[i] = plan.Entry{
			Path:      fmt.Sprintf("/work/chunk_%03d.ogg", i),
			Index:     i,
			StartTime: time.Duration(i) * 10 * time.Minute,
			EndTime:   time.Duration(i+1) * 10 * time.Minute,
		}
	}
	return out
}

func TestDriveAll_SequentialInOrder(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{}
	d := drive.NewDriver(client)

	var progress []drive.Progress
	results, err := d.DriveAll(context.Background(), chunks(3), func(p drive.Progress) {
		progress = append(progress, p)
	})
	if err != nil {
		t.Fatalf("DriveAll() error = %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, r := range results {
		if r.Chunk.Index != i {
			t.Errorf("result %d has chunk index %d", i, r.Chunk.Index)
		}
		if want := "text of " + r.Chunk.Path; r.Text != want {
			t.Errorf("result %d Text = %q, want %q", i, r.Text, want)
		}
	}

	wantCalls := []string{"/work/chunk_000.ogg", "/work/chunk_001.ogg", "/work/chunk_002.ogg"}
	for i, want := range wantCalls {
		if client.calls[i] != want {
			t.Errorf("call %d = %q, want %q (strict index order)", i, client.calls[i], want)
		}
	}

	if len(progress) != 3 {
		t.Fatalf("got %d progress events, want 3", len(progress))
	}
	last := progress[2]
	if last.Current != 3 || last.Total != 3 || last.ChunkIndex != 2 {
		t.Errorf("last progress = %+v, want Current=3 Total=3 ChunkIndex=2", last)
	}
}

func TestDriveAll_RetriesTransientWithBackoff(t *testing.T) {
	t.Parallel()

	transient := stt.Classify(errors.New("connection reset by peer"))
	client := &scriptedClient{script: []error{transient, transient, nil}}
	sleeper := &fakeSleep{}
	d := drive.NewDriver(client, drive.WithSleepFunc(sleeper.sleep))

	results, err := d.DriveAll(context.Background(), chunks(1), nil)
	if err != nil {
		t.Fatalf("DriveAll() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if len(client.calls) != 3 {
		t.Errorf("got %d attempts, want 3", len(client.calls))
	}

	// Backoff doubles: 5s after the first failure, 10s after the second.
	want := []time.Duration{5 * time.Second, 10 * time.Second}
	if len(sleeper.delays) != len(want) {
		t.Fatalf("slept %v, want %v", sleeper.delays, want)
	}
	for i := range want {
		if sleeper.delays[i] != want[i] {
			t.Errorf("delay %d = %v, want %v", i, sleeper.delays[i], want[i])
		}
	}
}

func TestDriveAll_BackoffCapped(t *testing.T) {
	t.Parallel()

	transient := errors.New("flaky")
	client := &scriptedClient{script: []error{
		transient, transient, transient, transient, transient, transient, nil,
	}}
	sleeper := &fakeSleep{}
	d := drive.NewDriver(client,
		drive.WithMaxAttempts(7),
		drive.WithSleepFunc(sleeper.sleep))

	if _, err := d.DriveAll(context.Background(), chunks(1), nil); err != nil {
		t.Fatalf("DriveAll() error = %v", err)
	}

	want := []time.Duration{
		5 * time.Second, 10 * time.Second, 20 * time.Second,
		40 * time.Second, 80 * time.Second, 80 * time.Second,
	}
	for i := range want {
		if sleeper.delays[i] != want[i] {
			t.Errorf("delay %d = %v, want %v", i, sleeper.delays[i], want[i])
		}
	}
}

func TestDriveAll_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	transient := errors.New("still flaky")
	client := &scriptedClient{script: []error{
		transient, transient, transient, transient, transient,
	}}
	sleeper := &fakeSleep{}
	d := drive.NewDriver(client, drive.WithSleepFunc(sleeper.sleep))

	_, err := d.DriveAll(context.Background(), chunks(2), nil)

	var exhausted *drive.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("DriveAll() error = %v, want *ExhaustedError", err)
	}
	if exhausted.ChunkIndex != 0 {
		t.Errorf("ChunkIndex = %d, want 0", exhausted.ChunkIndex)
	}
	if exhausted.Attempts != 5 {
		t.Errorf("Attempts = %d, want 5", exhausted.Attempts)
	}
	if !errors.Is(err, transient) {
		t.Error("ExhaustedError does not wrap the last transient error")
	}
	// Exactly 5 attempts for chunk 0, no calls for chunk 1.
	if len(client.calls) != 5 {
		t.Errorf("got %d calls, want 5 (no later chunks attempted)", len(client.calls))
	}
	// 4 sleeps between 5 attempts, never one after the last failure.
	if len(sleeper.delays) != 4 {
		t.Errorf("slept %d times, want 4", len(sleeper.delays))
	}
}

func TestDriveAll_PayloadTooLargeNeedsRechunk(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{script: []error{
		nil, // chunk 0 succeeds
		fmt.Errorf("upload rejected: %w", stt.ErrPayloadTooLarge),
	}}
	sleeper := &fakeSleep{}
	d := drive.NewDriver(client, drive.WithSleepFunc(sleeper.sleep))

	_, err := d.DriveAll(context.Background(), chunks(3), nil)
	if !errors.Is(err, drive.ErrNeedsRechunk) {
		t.Fatalf("DriveAll() error = %v, want ErrNeedsRechunk", err)
	}
	// No retry of the oversized chunk, no attempt on later chunks.
	if len(client.calls) != 2 {
		t.Errorf("got %d calls, want 2", len(client.calls))
	}
	if len(sleeper.delays) != 0 {
		t.Errorf("slept %d times, want 0 (size rejection is not transient)", len(sleeper.delays))
	}
}

func TestDriveAll_FatalPropagatesImmediately(t *testing.T) {
	t.Parallel()

	for _, fatal := range []error{stt.ErrUnauthorized, stt.ErrQuotaExceeded} {
		client := &scriptedClient{script: []error{fatal}}
		sleeper := &fakeSleep{}
		d := drive.NewDriver(client, drive.WithSleepFunc(sleeper.sleep))

		_, err := d.DriveAll(context.Background(), chunks(2), nil)
		if !errors.Is(err, fatal) {
			t.Errorf("DriveAll() error = %v, want %v", err, fatal)
		}
		if len(client.calls) != 1 {
			t.Errorf("got %d calls, want 1 (fatal aborts immediately)", len(client.calls))
		}
		if len(sleeper.delays) != 0 {
			t.Errorf("slept %d times, want 0", len(sleeper.delays))
		}
	}
}

func TestDriveAll_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &scriptedClient{}
	d := drive.NewDriver(client)

	_, err := d.DriveAll(ctx, chunks(1), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("DriveAll() error = %v, want context.Canceled", err)
	}
	if len(client.calls) != 0 {
		t.Errorf("got %d calls, want 0", len(client.calls))
	}
}

func TestDriveAll_DeadlineDuringTranscription(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{script: []error{context.DeadlineExceeded}}
	d := drive.NewDriver(client)

	_, err := d.DriveAll(context.Background(), chunks(1), nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("DriveAll() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestDriveAll_EmptyPlan(t *testing.T) {
	t.Parallel()

	d := drive.NewDriver(&scriptedClient{})
	results, err := d.DriveAll(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("DriveAll() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestExhaustedError_Message(t *testing.T) {
	t.Parallel()

	err := &drive.ExhaustedError{ChunkIndex: 2, Attempts: 5, Err: errors.New("timeout")}
	got := err.Error()
	for _, want := range []string{"chunk 2", "5 attempts", "timeout"} {
		if !strings.Contains(got, want) {
			t.Errorf("Error() = %q, want it to contain %q", got, want)
		}
	}
}
