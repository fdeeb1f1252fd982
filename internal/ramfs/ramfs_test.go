package ramfs

import (
	"reflect"
	"testing"

	"chronos/internal/kerr"
)

func TestTouchThenListShowsNewEmptyFile(t *testing.T) {
	fs := New()
	if err := fs.Touch("a.txt"); err != kerr.None {
		t.Fatalf("Touch: %v", err)
	}
	if got := fs.List(); !reflect.DeepEqual(got, []string{"a.txt"}) {
		t.Fatalf("List = %v", got)
	}
	data, err := fs.Read("a.txt")
	if err != kerr.None || len(data) != 0 {
		t.Fatalf("Read = %v, %v, want empty, no error", data, err)
	}
}

func TestTouchExistingNameIsRejected(t *testing.T) {
	fs := New()
	fs.Touch("a.txt")
	if err := fs.Touch("a.txt"); err == kerr.None {
		t.Fatal("second Touch of the same name should fail")
	}
}

func TestWriteCreatesOrOverwrites(t *testing.T) {
	fs := New()
	fs.Write("a.txt", []byte("hello"))
	data, _ := fs.Read("a.txt")
	if string(data) != "hello" {
		t.Fatalf("got %q", data)
	}
	fs.Write("a.txt", []byte("world!"))
	data, _ = fs.Read("a.txt")
	if string(data) != "world!" {
		t.Fatalf("got %q after overwrite", data)
	}
}

func TestReadReturnsACopyNotTheSharedBacking(t *testing.T) {
	fs := New()
	fs.Write("a.txt", []byte("hello"))
	data, _ := fs.Read("a.txt")
	data[0] = 'X'
	data2, _ := fs.Read("a.txt")
	if data2[0] != 'h' {
		t.Fatal("mutating a Read result leaked into the filesystem's storage")
	}
}

func TestRemoveThenListOmitsIt(t *testing.T) {
	fs := New()
	fs.Touch("a.txt")
	fs.Touch("b.txt")
	if err := fs.Remove("a.txt"); err != kerr.None {
		t.Fatalf("Remove: %v", err)
	}
	if got := fs.List(); !reflect.DeepEqual(got, []string{"b.txt"}) {
		t.Fatalf("List = %v", got)
	}
}

func TestRemoveUnknownNameReturnsNotFound(t *testing.T) {
	fs := New()
	if err := fs.Remove("missing"); err == kerr.None {
		t.Fatal("expected RAMFSNotFound")
	}
}

func TestReadUnknownNameReturnsNotFound(t *testing.T) {
	fs := New()
	if _, err := fs.Read("missing"); err == kerr.None {
		t.Fatal("expected RAMFSNotFound")
	}
}
