package arena

import "testing"

func TestArenaAllocateWithinChunk(t *testing.T) {
	t.Parallel()

	a := New(1024)
	buf, err := a.Allocate(100, 8)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if len(buf) != 100 {
		t.Errorf("len(buf) = %d, want 100", len(buf))
	}
	if a.ChunkCount() != 1 {
		t.Errorf("ChunkCount() = %d, want 1", a.ChunkCount())
	}
}

func TestArenaRollsNewChunkWhenFull(t *testing.T) {
	t.Parallel()

	a := New(64)
	if _, err := a.Allocate(40, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Allocate(40, 1); err != nil {
		t.Fatal(err)
	}
	if a.ChunkCount() != 2 {
		t.Errorf("ChunkCount() = %d, want 2 after overflow", a.ChunkCount())
	}
}

func TestArenaLargeAllocationSpillsOut(t *testing.T) {
	t.Parallel()

	a := New(64)
	buf, err := a.Allocate(200, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) != 200 {
		t.Errorf("len(buf) = %d, want 200", len(buf))
	}
	if a.LargeAllocationCount() != 1 {
		t.Errorf("LargeAllocationCount() = %d, want 1", a.LargeAllocationCount())
	}
	if a.ChunkCount() != 1 {
		t.Errorf("ChunkCount() = %d, want 1 (large alloc should not add a chunk)", a.ChunkCount())
	}
}

func TestArenaResetFreesExtraChunksAndLargeAllocations(t *testing.T) {
	t.Parallel()

	a := New(64)
	a.Allocate(40, 1)
	a.Allocate(40, 1) // forces a second chunk
	a.Allocate(200, 1) // large allocation

	a.Reset()

	if a.ChunkCount() != 1 {
		t.Errorf("ChunkCount() after Reset = %d, want 1", a.ChunkCount())
	}
	if a.LargeAllocationCount() != 0 {
		t.Errorf("LargeAllocationCount() after Reset = %d, want 0", a.LargeAllocationCount())
	}
}

func TestPoolAllocateDeallocate(t *testing.T) {
	t.Parallel()

	type widget struct{ N int }
	p := NewPool[widget](2)

	w1, idx1, ok := p.Allocate()
	if !ok {
		t.Fatal("expected allocation to succeed")
	}
	w1.N = 7

	_, idx2, ok := p.Allocate()
	if !ok {
		t.Fatal("expected second allocation to succeed")
	}

	if _, _, ok := p.Allocate(); ok {
		t.Fatal("expected pool exhaustion on third allocation")
	}

	if err := p.Deallocate(idx1); err != nil {
		t.Fatalf("Deallocate: %v", err)
	}
	w3, idx3, ok := p.Allocate()
	if !ok {
		t.Fatal("expected allocation to succeed after deallocate")
	}
	if w3.N != 0 {
		t.Errorf("reallocated slot should be zeroed, got N=%d", w3.N)
	}
	if idx3 != idx1 {
		t.Errorf("expected slot reuse: idx3=%d, idx1=%d", idx3, idx1)
	}
	_ = idx2
}

func TestPoolTracksPeakUsage(t *testing.T) {
	t.Parallel()

	p := NewPool[int](3)
	_, i1, _ := p.Allocate()
	_, i2, _ := p.Allocate()
	p.Deallocate(i1)
	p.Deallocate(i2)

	if p.Peak() != 2 {
		t.Errorf("Peak() = %d, want 2", p.Peak())
	}
	if p.InUse() != 0 {
		t.Errorf("InUse() = %d, want 0", p.InUse())
	}
}
