package bootstrap

import "testing"

// assertPaths compares parsed payload paths against expectations.
func assertPaths(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("paths = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("paths[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// TestSplitDropPayloadPlainPaths verifies whitespace separation.
func TestSplitDropPayloadPlainPaths(t *testing.T) {
	got := SplitDropPayload("/a/b.mp4 /c/d.wav")
	assertPaths(t, got, []string{"/a/b.mp4", "/c/d.wav"})
}

// TestSplitDropPayloadBracedPath verifies paths with spaces survive.
func TestSplitDropPayloadBracedPath(t *testing.T) {
	got := SplitDropPayload("{/home/u/My Talk.mp4} /tmp/b.wav")
	assertPaths(t, got, []string{"/home/u/My Talk.mp4", "/tmp/b.wav"})
}

// TestSplitDropPayloadMultipleBraced verifies adjacent braced paths.
func TestSplitDropPayloadMultipleBraced(t *testing.T) {
	got := SplitDropPayload("{/a dir/x.mp3} {/b dir/y.mp4}")
	assertPaths(t, got, []string{"/a dir/x.mp3", "/b dir/y.mp4"})
}

// TestSplitDropPayloadWindowsPaths verifies backslash paths pass through.
func TestSplitDropPayloadWindowsPaths(t *testing.T) {
	got := SplitDropPayload(`{C:\Media Files\clip.mp4} C:\b.wav`)
	assertPaths(t, got, []string{`C:\Media Files\clip.mp4`, `C:\b.wav`})
}

// TestSplitDropPayloadUnclosedBrace verifies tolerant parsing.
func TestSplitDropPayloadUnclosedBrace(t *testing.T) {
	got := SplitDropPayload("{/a dir/unfinished")
	assertPaths(t, got, []string{"/a dir/unfinished"})
}

// TestSplitDropPayloadEmpty verifies blank payloads yield nothing.
func TestSplitDropPayloadEmpty(t *testing.T) {
	if got := SplitDropPayload(""); len(got) != 0 {
		t.Fatalf("paths = %q, want none", got)
	}
	if got := SplitDropPayload("   "); len(got) != 0 {
		t.Fatalf("paths = %q, want none", got)
	}
}
