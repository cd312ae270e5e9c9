package threads

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"boardwatch/internal/logging"
	"boardwatch/internal/services"
)

func writeFile(t *testing.T, path, body string, mod time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatal(err)
	}
}

func TestLoadAllSkipsCorruptAndPrefersNewerDuplicate(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	writeFile(t, filepath.Join(dir, "200.json"), `{"no":200,"time":1700000000,"posts":[]}`, base)
	writeFile(t, filepath.Join(dir, "100-old.json"), `{"no":100,"time":1700000000,"sub":"old","posts":[]}`, base)
	writeFile(t, filepath.Join(dir, "100-new.json"), `{"no":100,"time":1700000000,"sub":"new","posts":[{"no":101,"resto":100,"time":1700000010}]}`, base.Add(time.Minute))
	writeFile(t, filepath.Join(dir, "broken.json"), `{"no":300,"posts":[`, base)
	writeFile(t, filepath.Join(dir, "notes.txt"), `ignored`, base)
	writeFile(t, filepath.Join(dir, "zero.json"), `{"posts":[]}`, base)

	got, err := LoadAll(context.Background(), dir, logging.NewNop())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 threads, got %d", len(got))
	}
	if got[0].No != 100 || got[1].No != 200 {
		t.Fatalf("unexpected order: %d, %d", got[0].No, got[1].No)
	}
	if got[0].Sub != "new" || got[0].PostCount() != 1 {
		t.Fatalf("expected newer duplicate to win, got %+v", got[0])
	}
}

func TestLoadAllMissingDirectory(t *testing.T) {
	_, err := LoadAll(context.Background(), filepath.Join(t.TempDir(), "absent"), logging.NewNop())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadAllEmptyDirectory(t *testing.T) {
	got, err := LoadAll(context.Background(), t.TempDir(), nil)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty corpus, got %d", len(got))
	}
}

func TestThreadHelpers(t *testing.T) {
	thread := Thread{
		No:   1,
		Time: 1700000000,
		Com:  "op &gt; text",
		Posts: []Post{
			{No: 2, Resto: 1, Com: "reply", Time: 1700000001},
			{No: 3, Resto: 1, Name: "named", Time: 1700000002, Tim: 1700000002123},
		},
	}
	if thread.PostCount() != 2 {
		t.Fatalf("PostCount = %d", thread.PostCount())
	}
	all := thread.AllPosts()
	if len(all) != 3 || all[0].No != 1 {
		t.Fatalf("AllPosts should start with OP: %+v", all)
	}
	if all[0].Text() != "op > text" {
		t.Fatalf("unexpected OP text %q", all[0].Text())
	}
	if all[1].Author() != DefaultAuthor || all[2].Author() != "named" {
		t.Fatal("unexpected author defaults")
	}
	if !all[2].HasMedia() || all[1].HasMedia() {
		t.Fatal("unexpected media detection")
	}
	if all[1].TimestampMillis() != 1700000001000 {
		t.Fatalf("unexpected millis %d", all[1].TimestampMillis())
	}

	noBody := Thread{No: 9, Posts: []Post{{No: 10}}}
	if len(noBody.AllPosts()) != 1 {
		t.Fatal("OP without body must not be scanned")
	}
}
