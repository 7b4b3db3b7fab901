package diffitem

import "testing"

func TestMatchRules(t *testing.T) {
	t.Run("same length no hashes is uncertain", func(t *testing.T) {
		a := New(10)
		b := New(10)
		if got := a.Match(b); got != Uncertain {
			t.Fatalf("Match = %v, want Uncertain", got)
		}
	})

	t.Run("different length is no_match", func(t *testing.T) {
		a := New(10)
		b := New(11)
		if got := a.Match(b); got != NoMatch {
			t.Fatalf("Match = %v, want NoMatch", got)
		}
	})

	t.Run("agreeing shared hash is match", func(t *testing.T) {
		a := New(10).WithHash(AlgorithmSHA256, []byte{1, 2, 3})
		b := New(10).WithHash(AlgorithmSHA256, []byte{1, 2, 3})
		if got := a.Match(b); got != Match {
			t.Fatalf("Match = %v, want Match", got)
		}
	})

	t.Run("disagreeing shared hash is no_match", func(t *testing.T) {
		a := New(10).WithHash(AlgorithmSHA256, []byte{1, 2, 3})
		b := New(10).WithHash(AlgorithmSHA256, []byte{9, 9, 9})
		if got := a.Match(b); got != NoMatch {
			t.Fatalf("Match = %v, want NoMatch", got)
		}
	})

	t.Run("disjoint algorithms is uncertain", func(t *testing.T) {
		a := New(10).WithHash(AlgorithmSHA256, []byte{1, 2, 3})
		b := New(10).WithHash(AlgorithmMD5, []byte{1, 2, 3})
		if got := a.Match(b); got != Uncertain {
			t.Fatalf("Match = %v, want Uncertain", got)
		}
	})

	t.Run("name never affects match", func(t *testing.T) {
		a := New(10).WithHash(AlgorithmSHA256, []byte{1, 2, 3}).WithName("a")
		b := New(10).WithHash(AlgorithmSHA256, []byte{1, 2, 3}).WithName("b")
		if got := a.Match(b); got != Match {
			t.Fatalf("Match = %v, want Match", got)
		}
	})
}

// TestAddingHashNeverDowngrades is invariant 1 from spec §8: for every
// item x and algorithm a, x.WithHash(h_a).Match(x) is Match or
// Uncertain, never NoMatch.
func TestAddingHashNeverDowngrades(t *testing.T) {
	base := New(42)
	withHash := base.WithHash(AlgorithmSHA256, []byte{7, 7, 7})
	got := withHash.Match(base)
	if got == NoMatch {
		t.Fatalf("adding a hash downgraded match to NoMatch")
	}
}

func TestHasMatchingHash(t *testing.T) {
	it := New(5).WithHash(AlgorithmMD5, []byte{1, 2, 3, 4})
	if !it.HasMatchingHash(AlgorithmMD5, []byte{1, 2, 3, 4}) {
		t.Fatal("expected matching hash")
	}
	if it.HasMatchingHash(AlgorithmMD5, []byte{9, 9, 9, 9}) {
		t.Fatal("expected no match for different digest")
	}
	if it.HasMatchingHash(AlgorithmSHA256, []byte{1, 2, 3, 4}) {
		t.Fatal("expected no match for unset algorithm")
	}
}

func TestCompareTotalOrder(t *testing.T) {
	a := New(5)
	b := New(10)
	if a.Compare(b) >= 0 {
		t.Fatal("shorter item should compare less than longer item")
	}
	if b.Compare(a) <= 0 {
		t.Fatal("longer item should compare greater than shorter item")
	}

	c := New(5).WithHash(AlgorithmMD5, []byte{1})
	d := New(5).WithHash(AlgorithmSHA256, []byte{1})
	if c.Compare(d) >= 0 {
		t.Fatal("MD5-only item should sort before SHA256-only item of same length")
	}

	e := New(5).WithName("a")
	f := New(5).WithName("b")
	if e.Compare(f) >= 0 {
		t.Fatal("name should break ties when lengths and hashes are equal")
	}

	g := New(5)
	h := New(5)
	if g.Compare(h) != 0 {
		t.Fatal("two empty items of equal length should compare equal")
	}
}

func TestSortKeyDistinguishesDistinctItems(t *testing.T) {
	a := New(5).WithHash(AlgorithmSHA256, []byte{1, 2, 3})
	b := New(5).WithHash(AlgorithmSHA256, []byte{1, 2, 4})
	if a.SortKey() == b.SortKey() {
		t.Fatal("distinct digests must produce distinct sort keys")
	}
	c := New(5).WithHash(AlgorithmSHA256, []byte{1, 2, 3})
	if a.SortKey() != c.SortKey() {
		t.Fatal("identical items must produce identical sort keys")
	}
}
