package archive

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"CricketSync/internal/config"
	"CricketSync/internal/model"

	"github.com/klauspost/compress/zip"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestFileSource(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/ipl_json.zip", buildZip(t, map[string]string{
		"1082591.json": `{"a":1}`,
		"335982.json":  `{"b":2}`,
		"README.txt":   "about",
	}), 0o644))

	src, err := NewFile(fs, "/ipl_json.zip", "", quietLogger())
	require.NoError(t, err)
	assert.Equal(t, KindZip, src.Kind())

	items, err := src.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.SourceItem{
		{ID: "1082591", Name: "1082591.json"},
		{ID: "335982", Name: "335982.json"},
	}, items)

	data, err := src.Read(context.Background(), items[1])
	require.NoError(t, err)
	assert.Equal(t, `{"b":2}`, string(data))

	_, err = src.Read(context.Background(), model.SourceItem{Name: "README.txt"})
	assert.Error(t, err)
}

func TestFileSourceMissing(t *testing.T) {
	_, err := NewFile(afero.NewMemMapFs(), "/nope.zip", "", quietLogger())
	assert.Error(t, err)
}

func TestURLSourceDownloadsOnce(t *testing.T) {
	payload := buildZip(t, map[string]string{"2019/1178424.json": "{}"})
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	src, err := NewURL(&config.DatasetConfig{Location: srv.URL, Timeout: 5}, quietLogger())
	require.NoError(t, err)

	items, err := src.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "1178424", items[0].ID)

	_, err = src.Read(context.Background(), items[0])
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestURLSourceNotAZip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	src, err := NewURL(&config.DatasetConfig{Location: srv.URL, Timeout: 5}, quietLogger())
	require.NoError(t, err)
	_, err = src.List(context.Background())
	assert.Error(t, err)
}
