package journal

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestJournal(t *testing.T) *Journal {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	j, err := Open(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndList(t *testing.T) {
	j := setupTestJournal(t)
	start := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	first, err := j.Record(Entry{
		Path:           "/tmp/a",
		KeyFingerprint: Fingerprint([]byte("0123456789abcdef")),
		Nonce:          "0011223344556677",
		Size:           4096,
		Processed:      4096,
		Workers:        8,
		Duration:       1500 * time.Millisecond,
		Started:        start,
		Success:        true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	_, err = j.Record(Entry{Path: "/tmp/b", Size: 10, Processed: 3, Workers: 1, Started: start.Add(time.Second)})
	require.NoError(t, err)

	entries, err := j.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	got := entries[0]
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "/tmp/a", got.Path)
	assert.Equal(t, first.KeyFingerprint, got.KeyFingerprint)
	assert.Equal(t, "0011223344556677", got.Nonce)
	assert.Equal(t, int64(4096), got.Size)
	assert.Equal(t, int64(4096), got.Processed)
	assert.Equal(t, 8, got.Workers)
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.True(t, got.Started.Equal(start))
	assert.True(t, got.Success)

	assert.Equal(t, "/tmp/b", entries[1].Path)
	assert.False(t, entries[1].Success)
}

func TestNonceUsesCountsDistinctFiles(t *testing.T) {
	j := setupTestJournal(t)
	fp := Fingerprint([]byte("0123456789abcdef"))

	for _, path := range []string{"/a", "/a", "/b"} {
		_, err := j.Record(Entry{Path: path, KeyFingerprint: fp, Nonce: "00"})
		require.NoError(t, err)
	}
	_, err := j.Record(Entry{Path: "/c", KeyFingerprint: fp, Nonce: "01"})
	require.NoError(t, err)

	n, err := j.NonceUses(fp, "00")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = j.NonceUses(fp, "ff")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte("0123456789abcdef"))
	assert.Len(t, a, 2*fingerprintBytes)
	assert.Equal(t, a, Fingerprint([]byte("0123456789abcdef")))
	assert.NotEqual(t, a, Fingerprint([]byte("0123456789abcdeg")))
	assert.NotContains(t, a, "0123456789abcdef")
}

func TestFilesForKeepsFirstUseOrder(t *testing.T) {
	j := setupTestJournal(t)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, path := range []string{"/z", "/a", "/z"} {
		_, err := j.Record(Entry{Path: path, KeyFingerprint: "fp", Nonce: "n", Started: start.Add(time.Duration(i) * time.Second)})
		require.NoError(t, err)
	}

	paths, err := j.FilesFor("fp", "n")
	require.NoError(t, err)
	assert.Equal(t, []string{"/z", "/a"}, paths)
}
