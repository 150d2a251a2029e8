package asset

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

type mockS3 struct {
	s3iface.S3API

	objects map[string]string
}

func (m *mockS3) GetObject(in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
	payload, ok := m.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, errors.New(s3.ErrCodeNoSuchKey)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(payload))}, nil
}

func TestLocalResource(t *testing.T) {
	_, thisFile, _, _ := runtime.Caller(0)
	res, err := NewResource(thisFile, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	if res.IsRemote() {
		t.Fatal("expected local resource")
	}
	if res.Name() != filepath.Base(thisFile) {
		t.Fatalf("expected name %q; got %q", filepath.Base(thisFile), res.Name())
	}
}

func TestMissingLocalResource(t *testing.T) {
	_, err := NewResource(filepath.Join(t.TempDir(), "missing.png"), nil)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped os.ErrNotExist; got %v", err)
	}
}

func TestHttpResource(t *testing.T) {
	_, thisFile, _, _ := runtime.Caller(0)
	thisDir := filepath.Dir(thisFile)

	server := httptest.NewServer(http.FileServer(http.Dir(thisDir)))
	defer server.Close()

	fetchUrl := server.URL + "/" + filepath.Base(thisFile)
	res, err := NewResource(fetchUrl, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	if !res.IsRemote() || res.Name() != filepath.Base(thisFile) {
		t.Fatalf("unexpected remote resource name %q", res.Name())
	}

	fetchUrl = server.URL + "/file-not-found.foo"
	expError := fmt.Sprintf("resource: could not fetch '%s': status %d", fetchUrl, 404)
	_, err = NewResource(fetchUrl, nil)
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get: %s; got %v", expError, err)
	}
}

func TestRelativeResources(t *testing.T) {
	serverHits := 0
	serverFn := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serverHits++
		if r.URL.Path == "/foo/file1.png" || r.URL.Path == "/foo/file2.png" {
			w.Write([]byte("OK"))
		} else {
			http.NotFound(w, r)
		}
	})
	server := httptest.NewServer(serverFn)
	defer server.Close()

	res1, err := NewResource(server.URL+"/foo/file1.png", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res1.Close()
	res2, err := NewResource("file2.png", res1)
	if err != nil {
		t.Fatal(err)
	}
	defer res2.Close()

	if serverHits != 2 {
		t.Fatalf("expected server to receive 2 requests; got %d", serverHits)
	}
}

func TestRelativeLocalResource(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}

	res1, err := NewResource(filepath.Join(dir, "a.txt"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res1.Close()

	res2, err := NewResource("b.txt", res1)
	if err != nil {
		t.Fatal(err)
	}
	defer res2.Close()

	data, err := io.ReadAll(res2)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "b" {
		t.Fatalf("expected to read the sibling file; got %q", data)
	}
}

func TestS3Resource(t *testing.T) {
	defer func(orig func() (s3iface.S3API, error)) { S3Client = orig }(S3Client)
	S3Client = func() (s3iface.S3API, error) {
		return &mockS3{objects: map[string]string{"scenes/textures/floor.png": "PNG"}}, nil
	}

	res, err := NewResource("s3://scenes/textures/floor.png", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	data, err := io.ReadAll(res)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "PNG" || res.Name() != "floor.png" {
		t.Fatalf("unexpected s3 resource contents %q (name %q)", data, res.Name())
	}

	if _, err = NewResource("s3://scenes/missing.png", nil); err == nil {
		t.Fatal("expected an error for a missing s3 object")
	}
}

func TestUnsupportedResourceScheme(t *testing.T) {
	_, err := NewResource("gopher://digging.go", nil)
	if !errors.Is(err, ErrUnsupportedScheme) {
		t.Fatalf("expected ErrUnsupportedScheme; got %v", err)
	}
	if expError := "resource: unsupported scheme 'gopher'"; err.Error() != expError {
		t.Fatalf("expected to get: %s; got %v", expError, err)
	}
}

func TestResourceFromStream(t *testing.T) {
	res := NewResourceFromStream("embedded.png", strings.NewReader("payload"))
	defer res.Close()

	data, err := io.ReadAll(res)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" || res.IsRemote() {
		t.Fatalf("unexpected stream resource %q", data)
	}
}
