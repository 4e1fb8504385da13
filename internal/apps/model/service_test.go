/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package model

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/runtimectl/m2ee-api/internal/config"
	"github.com/runtimectl/m2ee-api/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildZip returns a zip archive holding the given name → content entries.
func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// buildTarGz returns a tar.gz holding the given name → content entries.
func buildTarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0644,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func testRuntimeConfig(t *testing.T) config.RuntimeConfig {
	t.Helper()
	root := t.TempDir()
	cfg := config.RuntimeConfig{
		AppBase:         filepath.Join(root, "app"),
		ModelUploadPath: filepath.Join(root, "upload"),
		MxjarRepos:      []string{filepath.Join(root, "runtimes")},
		DownloadURL:     "http://127.0.0.1:1/mendix-%s.tar.gz",
	}
	for _, dir := range []string{cfg.AppBase, cfg.ModelUploadPath, cfg.MxjarRepos[0]} {
		require.NoError(t, os.MkdirAll(dir, 0755))
	}
	return cfg
}

func modelArchive(t *testing.T, version string) []byte {
	return buildZip(t, map[string]string{
		"model/metadata.json":  `{"RuntimeVersion": "` + version + `"}`,
		"model/model.mdp":      "model",
		"web/index.html":       "<html></html>",
		"native/ignored.txt":   "not unpacked",
		"mxruntime/config.txt": "not unpacked",
	})
}

func installRuntime(t *testing.T, repo, version string) string {
	path := filepath.Join(repo, version, "runtime")
	require.NoError(t, os.MkdirAll(path, 0755))
	return path
}

func TestService_SaveUploadReplacesArchive(t *testing.T) {
	cfg := testRuntimeConfig(t)
	svc := NewService(cfg, logger.NewNop())

	require.NoError(t, svc.SaveUpload(strings.NewReader("first")))
	require.NoError(t, svc.SaveUpload(strings.NewReader("second")))

	data, err := os.ReadFile(filepath.Join(cfg.ModelUploadPath, "model.mda"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(cfg.ModelUploadPath)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestService_UnpackWithPresentRuntime(t *testing.T) {
	cfg := testRuntimeConfig(t)
	svc := NewService(cfg, logger.NewNop())
	runtimePath := installRuntime(t, cfg.MxjarRepos[0], "5.21.0")

	// stale content is replaced
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.AppBase, "web"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.AppBase, "web", "stale.html"), []byte("old"), 0644))
	require.NoError(t, svc.SaveUpload(bytes.NewReader(modelArchive(t, "5.21.0"))))

	result, err := svc.Unpack(context.Background())
	require.NoError(t, err)
	assert.False(t, result.RuntimeDownloaded)
	assert.Equal(t, "5.21.0", result.RuntimeVersion)
	assert.Equal(t, runtimePath, result.RuntimePath)

	assert.FileExists(t, filepath.Join(cfg.AppBase, "model", "model.mdp"))
	assert.FileExists(t, filepath.Join(cfg.AppBase, "web", "index.html"))
	assert.NoFileExists(t, filepath.Join(cfg.AppBase, "web", "stale.html"))
	assert.NoDirExists(t, filepath.Join(cfg.AppBase, "native"))
	assert.NoDirExists(t, filepath.Join(cfg.AppBase, "mxruntime"))
}

func TestService_UnpackMissingArchive(t *testing.T) {
	svc := NewService(testRuntimeConfig(t), logger.NewNop())
	_, err := svc.Unpack(context.Background())
	assert.ErrorIs(t, err, ErrArchiveMissing)
}

func TestService_UnpackInvalidArchiveLeavesAppBase(t *testing.T) {
	cfg := testRuntimeConfig(t)
	svc := NewService(cfg, logger.NewNop())
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.AppBase, "model"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.AppBase, "model", "keep.txt"), []byte("x"), 0644))
	require.NoError(t, svc.SaveUpload(strings.NewReader("this is not a zip file")))

	_, err := svc.Unpack(context.Background())
	assert.ErrorIs(t, err, ErrArchiveInvalid)
	assert.FileExists(t, filepath.Join(cfg.AppBase, "model", "keep.txt"))
}

func TestService_UnpackRejectsPathTraversal(t *testing.T) {
	cfg := testRuntimeConfig(t)
	svc := NewService(cfg, logger.NewNop())
	require.NoError(t, svc.SaveUpload(bytes.NewReader(buildZip(t, map[string]string{
		"model/../../escape.txt": "evil",
	}))))

	_, err := svc.Unpack(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExtractionFailed) || errors.Is(err, ErrArchiveInvalid), err.Error())
	assert.NoFileExists(t, filepath.Join(filepath.Dir(cfg.AppBase), "escape.txt"))
}

func TestService_RuntimeVersion(t *testing.T) {
	cfg := testRuntimeConfig(t)

	_, err := NewService(cfg, logger.NewNop()).RuntimeVersion()
	assert.ErrorIs(t, err, ErrNoRuntimeVersion)

	cfg.Version = "6.0.0"
	v, err := NewService(cfg, logger.NewNop()).RuntimeVersion()
	require.NoError(t, err)
	assert.Equal(t, "6.0.0", v)
}

func TestService_UnpackNoWritableRepo(t *testing.T) {
	cfg := testRuntimeConfig(t)
	cfg.MxjarRepos = []string{filepath.Join(t.TempDir(), "does-not-exist")}
	svc := NewService(cfg, logger.NewNop())
	require.NoError(t, svc.SaveUpload(bytes.NewReader(modelArchive(t, "5.21.0"))))

	_, err := svc.Unpack(context.Background())
	assert.ErrorIs(t, err, ErrNoWritableRepo)
}

func TestService_UnpackDownloadsRuntime(t *testing.T) {
	tarball := buildTarGz(t, map[string]string{
		"5.21.0/runtime/bundles/core.jar": "jar",
		"5.21.0/README":                   "readme",
	})
	var requested string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		w.Write(tarball)
	}))
	defer srv.Close()

	cfg := testRuntimeConfig(t)
	cfg.DownloadURL = srv.URL + "/runtime/mendix-%s.tar.gz"
	svc := NewService(cfg, logger.NewNop())
	require.NoError(t, svc.SaveUpload(bytes.NewReader(modelArchive(t, "5.21.0"))))

	result, err := svc.Unpack(context.Background())
	require.NoError(t, err)
	assert.True(t, result.RuntimeDownloaded)
	assert.Equal(t, "/runtime/mendix-5.21.0.tar.gz", requested)
	assert.Equal(t, filepath.Join(cfg.MxjarRepos[0], "5.21.0", "runtime"), result.RuntimePath)
	assert.FileExists(t, filepath.Join(result.RuntimePath, "bundles", "core.jar"))

	entries, err := os.ReadDir(cfg.MxjarRepos[0])
	require.NoError(t, err)
	assert.Len(t, entries, 1, "staging files removed")
}

func TestService_DownloadRuntimeHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	cfg := testRuntimeConfig(t)
	cfg.DownloadURL = srv.URL + "/mendix-%s.tar.gz"
	_, err := NewService(cfg, logger.NewNop()).DownloadRuntime(context.Background(), "5.21.0", cfg.MxjarRepos[0])
	assert.ErrorIs(t, err, ErrDownloadFailed)
	assert.NoDirExists(t, filepath.Join(cfg.MxjarRepos[0], "5.21.0"))
}

func TestStripFirstComponent(t *testing.T) {
	assert.Equal(t, "runtime/a.jar", stripFirstComponent("5.21.0/runtime/a.jar"))
	assert.Equal(t, "runtime/", stripFirstComponent("./5.21.0/runtime/"))
	assert.Equal(t, "", stripFirstComponent("5.21.0"))
}

func TestWithin(t *testing.T) {
	assert.True(t, within("/srv/app", "/srv/app/model/x"))
	assert.True(t, within("/srv/app", "/srv/app"))
	assert.False(t, within("/srv/app", "/srv/application/x"))
	assert.False(t, within("/srv/app", "/srv/escape"))
}
