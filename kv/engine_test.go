package kv

import (
	"bytes"
	"path/filepath"
	"testing"
)

// engineFactories exercises every Engine implementation against the same
// behavioral contract.
func engineFactories(t *testing.T) map[string]func() Engine {
	t.Helper()
	return map[string]func() Engine{
		"memory": func() Engine { return NewMemory() },
		"disk": func() Engine {
			path := filepath.Join(t.TempDir(), "log")
			d, err := OpenDisk(path)
			if err != nil {
				t.Fatalf("OpenDisk: %v", err)
			}
			return d
		},
	}
}

func TestEngineSetGetDelete(t *testing.T) {
	for name, factory := range engineFactories(t) {
		t.Run(name, func(t *testing.T) {
			e := factory()
			defer e.Close()

			if _, ok, err := e.Get([]byte("a")); err != nil || ok {
				t.Fatalf("expected absent, got ok=%v err=%v", ok, err)
			}
			if err := e.Set([]byte("a"), []byte("1")); err != nil {
				t.Fatalf("Set: %v", err)
			}
			v, ok, err := e.Get([]byte("a"))
			if err != nil || !ok || !bytes.Equal(v, []byte("1")) {
				t.Fatalf("Get after Set: %v %v %v", v, ok, err)
			}
			if err := e.Delete([]byte("a")); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, ok, err := e.Get([]byte("a")); err != nil || ok {
				t.Fatalf("expected absent after delete, got ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestEngineScanOrderedAscendingAndDescending(t *testing.T) {
	for name, factory := range engineFactories(t) {
		t.Run(name, func(t *testing.T) {
			e := factory()
			defer e.Close()

			for _, k := range []string{"c", "a", "b"} {
				if err := e.Set([]byte(k), []byte(k+"v")); err != nil {
					t.Fatalf("Set(%s): %v", k, err)
				}
			}

			it, err := e.Scan(Range{})
			if err != nil {
				t.Fatalf("Scan: %v", err)
			}
			var got []string
			for {
				p, ok, err := it.Next()
				if err != nil {
					t.Fatalf("Next: %v", err)
				}
				if !ok {
					break
				}
				got = append(got, string(p.Key))
			}
			want := []string{"a", "b", "c"}
			if len(got) != len(want) {
				t.Fatalf("got %v, want %v", got, want)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("got %v, want %v", got, want)
				}
			}

			it2, err := e.Scan(Range{})
			if err != nil {
				t.Fatalf("Scan: %v", err)
			}
			var rev []string
			for {
				p, ok, err := it2.Prev()
				if err != nil {
					t.Fatalf("Prev: %v", err)
				}
				if !ok {
					break
				}
				rev = append(rev, string(p.Key))
			}
			wantRev := []string{"c", "b", "a"}
			for i := range wantRev {
				if rev[i] != wantRev[i] {
					t.Fatalf("got %v, want %v", rev, wantRev)
				}
			}
		})
	}
}

func TestEnginePrefixScan(t *testing.T) {
	for name, factory := range engineFactories(t) {
		t.Run(name, func(t *testing.T) {
			e := factory()
			defer e.Close()

			for _, k := range []string{"row/1", "row/2", "other/1"} {
				if err := e.Set([]byte(k), []byte("v")); err != nil {
					t.Fatalf("Set(%s): %v", k, err)
				}
			}
			it, err := e.PrefixScan([]byte("row/"))
			if err != nil {
				t.Fatalf("PrefixScan: %v", err)
			}
			var got []string
			for {
				p, ok, err := it.Next()
				if err != nil {
					t.Fatalf("Next: %v", err)
				}
				if !ok {
					break
				}
				got = append(got, string(p.Key))
			}
			if len(got) != 2 || got[0] != "row/1" || got[1] != "row/2" {
				t.Fatalf("got %v", got)
			}
		})
	}
}

func TestDiskReplaysLogOnReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log")
	d, err := OpenDisk(path)
	if err != nil {
		t.Fatalf("OpenDisk: %v", err)
	}
	if err := d.Set([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := d.Set([]byte("b"), []byte("2")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := d.Delete([]byte("a")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	d2, err := OpenDisk(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d2.Close()

	if _, ok, _ := d2.Get([]byte("a")); ok {
		t.Fatalf("expected a to be absent after replay")
	}
	v, ok, err := d2.Get([]byte("b"))
	if err != nil || !ok || !bytes.Equal(v, []byte("2")) {
		t.Fatalf("expected b=2 after replay, got %v %v %v", v, ok, err)
	}
}

func TestDiskRefusesSecondOpenWhileLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log")
	d, err := OpenDisk(path)
	if err != nil {
		t.Fatalf("OpenDisk: %v", err)
	}
	defer d.Close()

	if _, err := OpenDisk(path); err == nil {
		t.Fatalf("expected second OpenDisk on the same path to fail")
	}
}

func TestDiskCompactPreservesLiveData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log")
	d, err := OpenDisk(path)
	if err != nil {
		t.Fatalf("OpenDisk: %v", err)
	}
	defer d.Close()

	if err := d.Set([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := d.Set([]byte("a"), []byte("2")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := d.Set([]byte("b"), []byte("3")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := d.Delete([]byte("b")); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if err := d.Compact(); err != nil {
		t.Fatalf("Compact: %v", err)
	}

	v, ok, err := d.Get([]byte("a"))
	if err != nil || !ok || !bytes.Equal(v, []byte("2")) {
		t.Fatalf("expected a=2 after compaction, got %v %v %v", v, ok, err)
	}
	if _, ok, _ := d.Get([]byte("b")); ok {
		t.Fatalf("expected b to stay absent after compaction")
	}
}
