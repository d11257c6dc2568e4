package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/coworker/internal/core/ports/driven"
)

func TestNewPromptStore_WithCustomDir(t *testing.T) {
	dir := t.TempDir()

	store, err := NewPromptStore(dir)

	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptQuerySystem)
	require.NoError(t, err)

	for _, name := range Names() {
		_, err := os.Stat(filepath.Join(dir, name+".txt"))
		assert.NoError(t, err, "expected prompt file %s", name)
	}
}

func TestPromptStore_Load_UserOverride(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	_, err = store.Load(driven.PromptDiffSystem)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "diff_system.txt"), []byte("  custom  \n"), 0600))
	store.Reload()

	prompt, err := store.Load(driven.PromptDiffSystem)
	require.NoError(t, err)
	assert.Equal(t, "custom", prompt)
}

func TestPromptStore_Load_EmptyFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	_, err = store.Load(driven.PromptReduce)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "reduce.txt"), nil, 0600))
	store.Reload()

	prompt, err := store.Load(driven.PromptReduce)
	require.NoError(t, err)
	assert.Equal(t, defaultPrompts[driven.PromptReduce], prompt)
}

func TestPromptStore_Load_Unknown(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("does_not_exist")

	assert.Error(t, err)
}

func TestPromptStore_ConcurrentLoad(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := store.Load(driven.PromptSuggestSystem)
			assert.NoError(t, err)
			assert.Contains(t, p, "relevance")
		}()
	}
	wg.Wait()
}
