package testsupport

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"boardwatch/internal/threads"
)

// WriteThread stores th as <dir>/<no>.json and returns the path.
func WriteThread(t testing.TB, dir string, th threads.Thread) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	data, err := json.Marshal(th)
	if err != nil {
		t.Fatalf("marshal thread %d: %v", th.No, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%d.json", th.No))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// NewThread builds a thread numbered no with n replies. Reply i is numbered
// no+i+1, posted i seconds after the opening post, and carries bodies[i] when
// present or a generic line otherwise.
func NewThread(no int64, n int, bodies map[int]string) threads.Thread {
	const start = int64(1_700_000_000)
	th := threads.Thread{No: no, Time: start, Com: fmt.Sprintf("opening post %d", no)}
	for i := 0; i < n; i++ {
		body, ok := bodies[i]
		if !ok {
			body = fmt.Sprintf("reply %d", i)
		}
		th.Posts = append(th.Posts, threads.Post{
			No:    no + int64(i) + 1,
			Resto: no,
			Com:   body,
			Time:  start + int64(i) + 1,
		})
	}
	return th
}
