package store

import (
	"bytes"
	"fmt"
	"testing"
)

// crash abandons the store without batching: staged memory is
// discarded and the files keep only what earlier batches made durable,
// plus whatever unsynced page writes happened to land.
func crash(t *testing.T, s *Store) {
	t.Helper()
	if err := s.Shutdown(); err != nil {
		t.Fatalf("Failed to simulate crash: %v", err)
	}
}

func reopenStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := New(dir, testOptions()...)
	if err != nil {
		t.Fatalf("Failed to recreate store: %v", err)
	}
	if err := s.Init(); err != nil {
		t.Fatalf("Failed to recover store: %v", err)
	}
	t.Cleanup(func() { s.Shutdown() })
	return s
}

// TestCrashRecovery_DurableUpToLastBatch is the engine's contract in
// one scenario: a batched write survives a crash, an unbatched
// overwrite of the same key is visible in-session but rolls back to
// the batched value after recovery.
func TestCrashRecovery_DurableUpToLastBatch(t *testing.T) {
	dir := t.TempDir()
	key := bytes.Repeat([]byte{0x01}, 32)
	zeros := make([]byte, 300)
	ones := bytes.Repeat([]byte{0xFF}, 300)

	// Phase 1: batch the zero value, stage the 0xFF value, crash.
	{
		s, err := New(dir, testOptions()...)
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		if err := s.Init(); err != nil {
			t.Fatalf("Failed to init store: %v", err)
		}
		if err := s.Put(key, zeros); err != nil {
			t.Fatalf("Failed to put: %v", err)
		}
		if err := s.Batch(); err != nil {
			t.Fatalf("Failed to batch: %v", err)
		}

		if err := s.Put(key, ones); err != nil {
			t.Fatalf("Failed to put overwrite: %v", err)
		}
		// Read-your-writes: the unbatched overwrite is what this
		// session sees.
		got, found, err := s.Get(key)
		if err != nil || !found {
			t.Fatalf("Expected staged overwrite visible, got found=%v err=%v", found, err)
		}
		if !bytes.Equal(got, ones) {
			t.Fatal("Expected the staged 0xFF value before the crash")
		}

		crash(t, s)
	}

	// Phase 2: recovery sees only the batched zero value.
	{
		s := reopenStore(t, dir)

		got, found, err := s.Get(key)
		if err != nil {
			t.Fatalf("Failed to get after recovery: %v", err)
		}
		if !found {
			t.Fatal("Expected batched key to survive the crash")
		}
		if !bytes.Equal(got, zeros) {
			t.Error("Expected the batched zero value after recovery, not the staged overwrite")
		}

		versions, err := s.History(key, 0)
		if err != nil {
			t.Fatalf("Failed to read history: %v", err)
		}
		if len(versions) != 1 {
			t.Errorf("Expected exactly the batched version, got %d", len(versions))
		}
	}
}

func TestCrashRecovery_NothingCommitted(t *testing.T) {
	dir := t.TempDir()

	{
		s, err := New(dir, testOptions()...)
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		if err := s.Init(); err != nil {
			t.Fatalf("Failed to init store: %v", err)
		}
		for i := 0; i < 10; i++ {
			if err := s.Put([]byte(fmt.Sprintf("lost-%d", i)), []byte("unbatched")); err != nil {
				t.Fatalf("Failed to put: %v", err)
			}
		}
		crash(t, s)
	}

	{
		s := reopenStore(t, dir)

		for i := 0; i < 10; i++ {
			_, found, err := s.Get([]byte(fmt.Sprintf("lost-%d", i)))
			if err != nil {
				t.Fatalf("Recovery get failed: %v", err)
			}
			if found {
				t.Errorf("Expected lost-%d to be gone after crash", i)
			}
		}

		// The store takes new writes as if the lost ones never happened.
		if err := s.Put([]byte("fresh"), []byte("start")); err != nil {
			t.Fatalf("Failed to put after recovery: %v", err)
		}
		if err := s.Batch(); err != nil {
			t.Fatalf("Failed to batch after recovery: %v", err)
		}
		got, found, err := s.Get([]byte("fresh"))
		if err != nil || !found {
			t.Fatalf("Expected fresh key, got found=%v err=%v", found, err)
		}
		if string(got) != "start" {
			t.Errorf("Expected fresh value, got %q", got)
		}
	}
}

func TestCrashRecovery_CrashBetweenBatches(t *testing.T) {
	dir := t.TempDir()

	{
		s, err := New(dir, testOptions()...)
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		if err := s.Init(); err != nil {
			t.Fatalf("Failed to init store: %v", err)
		}
		for i := 0; i < 5; i++ {
			if err := s.Put([]byte(fmt.Sprintf("durable-%d", i)), []byte("batched")); err != nil {
				t.Fatalf("Failed to put: %v", err)
			}
		}
		if err := s.Batch(); err != nil {
			t.Fatalf("Failed to batch: %v", err)
		}
		for i := 0; i < 5; i++ {
			if err := s.Put([]byte(fmt.Sprintf("volatile-%d", i)), []byte("staged")); err != nil {
				t.Fatalf("Failed to put: %v", err)
			}
		}
		crash(t, s)
	}

	{
		s := reopenStore(t, dir)

		for i := 0; i < 5; i++ {
			_, found, err := s.Get([]byte(fmt.Sprintf("durable-%d", i)))
			if err != nil || !found {
				t.Errorf("Expected durable-%d after crash, got found=%v err=%v", i, found, err)
			}
			_, found, err = s.Get([]byte(fmt.Sprintf("volatile-%d", i)))
			if err != nil {
				t.Fatalf("Recovery get failed: %v", err)
			}
			if found {
				t.Errorf("Expected volatile-%d to be gone after crash", i)
			}
		}
	}
}

// TestCrashRecovery_TailOverwritten drives the log through a crash and
// then past the dead tail it left: the new generation's appends land
// where the lost ones were, and only the new keys resolve.
func TestCrashRecovery_TailOverwritten(t *testing.T) {
	dir := t.TempDir()

	{
		s, err := New(dir, testOptions()...)
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		if err := s.Init(); err != nil {
			t.Fatalf("Failed to init store: %v", err)
		}
		if err := s.Put([]byte("anchor"), []byte("committed")); err != nil {
			t.Fatalf("Failed to put: %v", err)
		}
		if err := s.Batch(); err != nil {
			t.Fatalf("Failed to batch: %v", err)
		}
		// Big enough to complete pages, so unsynced bytes really reach
		// the file before the crash.
		if err := s.Put([]byte("ghost"), make([]byte, 3*4096)); err != nil {
			t.Fatalf("Failed to put ghost: %v", err)
		}
		crash(t, s)
	}

	{
		s := reopenStore(t, dir)

		if _, found, err := s.Get([]byte("ghost")); err != nil || found {
			t.Errorf("Expected ghost gone, got found=%v err=%v", found, err)
		}

		if err := s.Put([]byte("replacement"), []byte("second generation")); err != nil {
			t.Fatalf("Failed to put replacement: %v", err)
		}
		if err := s.Batch(); err != nil {
			t.Fatalf("Failed to batch: %v", err)
		}

		for key, want := range map[string]string{
			"anchor":      "committed",
			"replacement": "second generation",
		} {
			got, found, err := s.Get([]byte(key))
			if err != nil || !found {
				t.Fatalf("Expected %s, got found=%v err=%v", key, found, err)
			}
			if string(got) != want {
				t.Errorf("Expected %q for %s, got %q", want, key, got)
			}
		}
		if _, found, err := s.Get([]byte("ghost")); err != nil || found {
			t.Errorf("Expected ghost still gone, got found=%v err=%v", found, err)
		}
	}
}

// TestCrashRecovery_RepeatedGenerations reopens the store several
// times, batching some keys each generation, and verifies the full
// accumulated state at the end.
func TestCrashRecovery_RepeatedGenerations(t *testing.T) {
	dir := t.TempDir()
	const generations = 5
	const perGen = 10

	for g := 0; g < generations; g++ {
		s, err := New(dir, testOptions()...)
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		if err := s.Init(); err != nil {
			t.Fatalf("Failed to init generation %d: %v", g, err)
		}
		for i := 0; i < perGen; i++ {
			key := []byte(fmt.Sprintf("gen%d-key%d", g, i))
			if err := s.Put(key, []byte(fmt.Sprintf("gen%d", g))); err != nil {
				t.Fatalf("Failed to put: %v", err)
			}
		}
		if err := s.Batch(); err != nil {
			t.Fatalf("Failed to batch generation %d: %v", g, err)
		}
		if err := s.Shutdown(); err != nil {
			t.Fatalf("Failed to shutdown generation %d: %v", g, err)
		}
	}

	s := reopenStore(t, dir)
	stats := s.Stats()
	if stats.Records != generations*perGen {
		t.Errorf("Expected %d records, got %d", generations*perGen, stats.Records)
	}
	for g := 0; g < generations; g++ {
		for i := 0; i < perGen; i++ {
			key := []byte(fmt.Sprintf("gen%d-key%d", g, i))
			got, found, err := s.Get(key)
			if err != nil || !found {
				t.Fatalf("Expected %s, got found=%v err=%v", key, found, err)
			}
			if want := fmt.Sprintf("gen%d", g); string(got) != want {
				t.Errorf("Expected %q, got %q", want, got)
			}
		}
	}
}
