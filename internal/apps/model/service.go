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

// Package model manages the uploaded model archive, its unpacking into the
// application base, and fetching the runtime version it needs.
// model 包管理上传的模型包、解压到应用目录以及下载所需的运行时版本。
package model

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/runtimectl/m2ee-api/internal/config"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// ArchiveName is the fixed file name of the uploaded model archive.
const ArchiveName = "model.mda"

// unpacked top-level directories of a model archive
var unpackDirs = []string{"model", "web"}

// UnpackResult describes a finished unpack.
// UnpackResult 描述一次完成的解压。
type UnpackResult struct {
	RuntimeVersion    string
	RuntimeDownloaded bool
	RuntimePath       string
}

// Service handles model archives and runtime distributions.
// Service 处理模型包和运行时发行包。
type Service struct {
	cfg        config.RuntimeConfig
	httpClient *http.Client
	log        *otelzap.Logger
}

// NewService creates a new Service instance.
// NewService 创建一个新的 Service 实例。
func NewService(cfg config.RuntimeConfig, log *otelzap.Logger) *Service {
	return &Service{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Minute, // runtime distributions are large
		},
		log: log,
	}
}

// ArchivePath returns where the uploaded archive is stored.
func (s *Service) ArchivePath() string {
	return filepath.Join(s.cfg.ModelUploadPath, ArchiveName)
}

// SaveUpload stores src as the model archive, replacing any previous one atomically.
// SaveUpload 将上传内容原子地保存为模型包。
func (s *Service) SaveUpload(src io.Reader) error {
	if err := os.MkdirAll(s.cfg.ModelUploadPath, 0755); err != nil {
		return fmt.Errorf("model: create upload directory: %w", err)
	}
	tmp, err := os.CreateTemp(s.cfg.ModelUploadPath, ArchiveName+".*.tmp")
	if err != nil {
		return fmt.Errorf("model: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return fmt.Errorf("model: write upload: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("model: sync upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("model: close upload: %w", err)
	}
	return os.Rename(tmp.Name(), s.ArchivePath())
}

// Unpack replaces model/ and web/ under the application base with the
// contents of the uploaded archive, then makes sure the runtime version the
// model needs is present, downloading it when it is not.
// Unpack 用上传的模型包替换应用目录下的 model/ 和 web/，并在缺少所需运行时时下载。
func (s *Service) Unpack(ctx context.Context) (*UnpackResult, error) {
	if err := s.unpackArchive(); err != nil {
		return nil, err
	}

	version, err := s.RuntimeVersion()
	if err != nil {
		return nil, err
	}
	result := &UnpackResult{RuntimeVersion: version}

	if path := s.LookupRuntime(version); path != "" {
		result.RuntimePath = path
		return result, nil
	}

	repo := s.FirstWritableRepo()
	if repo == "" {
		return nil, ErrNoWritableRepo
	}
	path, err := s.DownloadRuntime(ctx, version, repo)
	if err != nil {
		return nil, err
	}
	result.RuntimePath = path
	result.RuntimeDownloaded = true
	return result, nil
}

func (s *Service) unpackArchive() error {
	archive := s.ArchivePath()
	if _, err := os.Stat(archive); err != nil {
		return fmt.Errorf("%w: %s", ErrArchiveMissing, archive)
	}

	zr, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArchiveInvalid, err)
	}
	defer zr.Close()

	// Test every entry before touching the application base
	// 在修改应用目录前先校验每个条目
	if err := testArchive(&zr.Reader); err != nil {
		return fmt.Errorf("%w: %v", ErrArchiveInvalid, err)
	}

	for _, dir := range unpackDirs {
		if err := os.RemoveAll(filepath.Join(s.cfg.AppBase, dir)); err != nil {
			s.log.Warn("[Model] remove old directory failed", zap.String("dir", dir), zap.Error(err))
		}
	}

	count, err := extractZip(&zr.Reader, s.cfg.AppBase, unpackDirs)
	if err != nil {
		return err
	}
	s.log.Info("[Model] archive unpacked", zap.String("archive", archive), zap.Int("files", count))
	return nil
}

// testArchive reads every entry so that the zip checksums are verified.
func testArchive(zr *zip.Reader) error {
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		_, err = io.Copy(io.Discard, rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	return nil
}

// extractZip extracts the entries below one of the given top-level
// directories into destDir and returns the number of files written.
func extractZip(zr *zip.Reader, destDir string, dirs []string) (int, error) {
	count := 0
	for _, f := range zr.File {
		name := filepath.ToSlash(f.Name)
		if !underAny(name, dirs) {
			continue
		}
		target := filepath.Join(destDir, filepath.FromSlash(name))
		if !within(destDir, target) {
			return count, fmt.Errorf("%w: invalid file path in archive: %s", ErrExtractionFailed, f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return count, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return count, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
		}
		if err := writeZipEntry(f, target); err != nil {
			return count, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
		}
		count++
	}
	return count, nil
}

func writeZipEntry(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func underAny(name string, dirs []string) bool {
	for _, d := range dirs {
		if strings.HasPrefix(name, d+"/") {
			return true
		}
	}
	return false
}

// within reports whether target is destDir or below it.
func within(destDir, target string) bool {
	base := filepath.Clean(destDir)
	target = filepath.Clean(target)
	return target == base || strings.HasPrefix(target, base+string(os.PathSeparator))
}

// metadata is the part of model/metadata.json the service reads.
type metadata struct {
	RuntimeVersion string `json:"RuntimeVersion"`
}

// RuntimeVersion returns the configured runtime version, or the one the
// unpacked model declares in model/metadata.json.
// RuntimeVersion 返回配置的运行时版本，未配置时读取 model/metadata.json。
func (s *Service) RuntimeVersion() (string, error) {
	if s.cfg.Version != "" {
		return s.cfg.Version, nil
	}
	data, err := os.ReadFile(filepath.Join(s.cfg.AppBase, "model", "metadata.json"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoRuntimeVersion, err)
	}
	var md metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoRuntimeVersion, err)
	}
	if md.RuntimeVersion == "" {
		return "", fmt.Errorf("%w: RuntimeVersion missing in metadata.json", ErrNoRuntimeVersion)
	}
	return md.RuntimeVersion, nil
}

// LookupRuntime returns the runtime directory for version in the first
// mxjar repository that has it, or "".
// LookupRuntime 在 mxjar 仓库中查找指定版本的运行时目录。
func (s *Service) LookupRuntime(version string) string {
	for _, repo := range s.cfg.MxjarRepos {
		path := filepath.Join(repo, version, "runtime")
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return path
		}
	}
	return ""
}

// FirstWritableRepo returns the first mxjar repository a file can be created in.
// FirstWritableRepo 返回第一个可写的 mxjar 仓库。
func (s *Service) FirstWritableRepo() string {
	for _, repo := range s.cfg.MxjarRepos {
		if info, err := os.Stat(repo); err != nil || !info.IsDir() {
			continue
		}
		f, err := os.CreateTemp(repo, ".m2ee-write-test-*")
		if err != nil {
			continue
		}
		f.Close()
		os.Remove(f.Name())
		return repo
	}
	return ""
}

// DownloadRuntime fetches the runtime distribution for version into repo and
// returns the runtime directory. The tarball's first path component is
// stripped, so the result lives at <repo>/<version>/runtime.
// DownloadRuntime 下载运行时发行包到指定仓库，并返回运行时目录。
func (s *Service) DownloadRuntime(ctx context.Context, version, repo string) (string, error) {
	url := fmt.Sprintf(s.cfg.DownloadURL, version)
	s.log.Ctx(ctx).Info("[Model] downloading runtime", zap.String("version", version), zap.String("url", url))

	tarball, err := s.download(ctx, url, repo)
	if err != nil {
		return "", err
	}
	defer os.Remove(tarball)

	staging, err := os.MkdirTemp(repo, ".mendix-"+version+"-*")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer os.RemoveAll(staging)

	if err := extractTarGz(ctx, tarball, staging); err != nil {
		return "", err
	}

	dest := filepath.Join(repo, version)
	// a directory without runtime/ is a leftover of an earlier failed attempt
	if err := os.RemoveAll(dest); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if err := os.Rename(staging, dest); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	runtime := filepath.Join(dest, "runtime")
	if info, err := os.Stat(runtime); err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: distribution has no runtime directory", ErrExtractionFailed)
	}
	s.log.Ctx(ctx).Info("[Model] runtime downloaded", zap.String("path", runtime))
	return runtime, nil
}

// download writes the body of url to a temp file in dir and returns its path.
func (s *Service) download(ctx context.Context, url, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: HTTP status %d", ErrDownloadFailed, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(dir, ".mendix-*.tar.gz")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	return tmp.Name(), nil
}

// extractTarGz extracts a tar.gz file into destDir, stripping the first path component.
// extractTarGz 解压 tar.gz 到目标目录，并去除第一个路径组件。
func extractTarGz(ctx context.Context, path, destDir string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("%w: failed to create gzip reader: %v", ErrExtractionFailed, err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: failed to read tar header: %v", ErrExtractionFailed, err)
		}

		rel := stripFirstComponent(header.Name)
		if rel == "" {
			continue
		}
		target := filepath.Join(destDir, filepath.FromSlash(rel))
		if !within(destDir, target) {
			return fmt.Errorf("%w: invalid file path in archive: %s", ErrExtractionFailed, header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("%w: %v", ErrExtractionFailed, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("%w: %v", ErrExtractionFailed, err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode).Perm()|0600)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrExtractionFailed, err)
			}
			if _, err := io.Copy(out, tarReader); err != nil {
				out.Close()
				return fmt.Errorf("%w: %v", ErrExtractionFailed, err)
			}
			out.Close()
		case tar.TypeSymlink:
			if filepath.IsAbs(header.Linkname) || !within(destDir, filepath.Join(filepath.Dir(target), header.Linkname)) {
				return fmt.Errorf("%w: invalid symlink in archive: %s", ErrExtractionFailed, header.Name)
			}
			if err := os.Symlink(header.Linkname, target); err != nil && !os.IsExist(err) {
				return fmt.Errorf("%w: %v", ErrExtractionFailed, err)
			}
		}
	}
}

// stripFirstComponent removes the first path component from a tar entry name.
func stripFirstComponent(name string) string {
	name = strings.TrimPrefix(filepath.ToSlash(name), "./")
	parts := strings.SplitN(name, "/", 2)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
