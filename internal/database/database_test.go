package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"bookshelf/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingWriter struct {
	lines []string
}

func (w *recordingWriter) Printf(format string, args ...interface{}) {
	w.lines = append(w.lines, fmt.Sprintf(format, args...))
}

func TestLogger_SkipsRecordNotFound(t *testing.T) {
	w := &recordingWriter{}
	l := newLogger(w)
	query := func() (string, int64) { return "SELECT * FROM users WHERE username = 'ghost'", 0 }

	l.Trace(context.Background(), time.Now(), query, gorm.ErrRecordNotFound)
	assert.Empty(t, w.lines)

	l.Trace(context.Background(), time.Now(), query, errors.New("connection reset"))
	require.Len(t, w.lines, 1)
	assert.Contains(t, w.lines[0], "connection reset")
}

func TestOpen_SQLite(t *testing.T) {
	db, err := Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	defer Close(db)

	var user models.User
	err = db.Where("username = ?", "ghost").First(&user).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "dsn")
	assert.Error(t, err)
}
