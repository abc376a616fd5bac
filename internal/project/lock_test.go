package project_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamsmac/MYDON-sub006/internal/project"
	"github.com/jamsmac/MYDON-sub006/pkg/fields"
)

func Test_Acquire_TimesOut_When_LockHeld(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fields.json")

	held, err := project.Acquire(path, time.Second)
	require.NoError(t, err)

	_, err = project.Acquire(path, 20*time.Millisecond)
	require.ErrorIs(t, err, project.ErrLockTimeout)

	require.NoError(t, held.Close())
	require.NoError(t, held.Close(), "close is idempotent")

	again, err := project.Acquire(path, 0)
	require.NoError(t, err)
	require.NoError(t, again.Close())

	_, err = os.Stat(project.LockPath(path))
	assert.NoError(t, err, "lock file stays beside the catalog")
}

func Test_Update_CreatesCatalog_When_FileMissing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fields.json")

	err := project.Update(path, time.Second, func(c *project.Catalog) error {
		_, err := c.AddField(fields.FieldDefinition{Name: "hours", Type: fields.TypeNumber})
		return err
	})
	require.NoError(t, err)

	c, err := project.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"hours"}, c.FieldNames())
}

func Test_Update_LeavesFileUntouched_When_CallbackFails(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fields.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"fields": [], "tasks": []}`), 0o600))

	boom := errors.New("boom")

	err := project.Update(path, time.Second, func(c *project.Catalog) error {
		require.NoError(t, c.AddTask(project.Task{ID: "t1"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fields": [], "tasks": []}`, string(data))
}

func Test_Update_SerializesWriters_When_Concurrent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fields.json")

	const writers = 8

	var wg sync.WaitGroup

	errs := make(chan error, writers)

	for i := range writers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			errs <- project.Update(path, 5*time.Second, func(c *project.Catalog) error {
				return c.AddTask(project.Task{ID: string(rune('a' + i))})
			})
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	c, err := project.Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Tasks(), writers, "no update may be lost")
}
