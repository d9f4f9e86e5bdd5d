package mem

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// BackingStore is the append-mostly on-disk log evicted dirty pages are
// written to and faulted-in pages are read from (spec §4.3). Each line is
// "<key> w0 w1 w2 ...": a page key followed by its raw 16-bit words in
// decimal. On load, the file is scanned for the key; the most recent
// matching line wins, so eviction never needs to rewrite or seek - it
// just appends, the same line-oriented append-only shape as
// latency.SaveConfig's whole-file rewrite but tuned for a log instead of
// a single document.
type BackingStore struct {
	mu   sync.Mutex
	path string
}

// NewBackingStore opens (without truncating) the backing file at path.
func NewBackingStore(path string) *BackingStore {
	return &BackingStore{path: path}
}

// Key formats the backing-store key for a process's page, per spec §3:
// "<process>_page_<n>".
func Key(processName string, page int) string {
	return fmt.Sprintf("%s_page_%d", processName, page)
}

// Save appends a line recording words for key. Word count is expected to
// equal the frame size in 16-bit cells.
func (b *BackingStore) Save(key string, words []uint16) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("mem: open backing store: %w", err)
	}
	defer func() { _ = f.Close() }()

	var sb strings.Builder
	sb.WriteString(key)
	for _, w := range words {
		sb.WriteByte(' ')
		sb.WriteString(strconv.Itoa(int(w)))
	}
	sb.WriteByte('\n')

	_, err = f.WriteString(sb.String())
	return err
}

// Load scans the backing store for key and returns its most recently
// saved words. A miss (key never written) returns a zero-filled slice of
// length wordCount rather than an error (spec §4.3: "zero-fill if
// absent").
func (b *BackingStore) Load(key string, wordCount int) []uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()

	words := make([]uint16, wordCount)

	f, err := os.Open(b.path)
	if err != nil {
		return words // file doesn't exist yet: nothing was ever saved
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || fields[0] != key {
			continue
		}
		for i, field := range fields[1:] {
			if i >= wordCount {
				break
			}
			n, err := strconv.Atoi(field)
			if err != nil {
				continue
			}
			words[i] = uint16(n)
		}
	}
	return words
}
