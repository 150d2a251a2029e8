package asset

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

var (
	ErrUnsupportedScheme = errors.New("resource: unsupported scheme")

	// The client used for fetching http/https resources.
	HTTPClient = &http.Client{Timeout: 30 * time.Second}

	// Returns the client used for fetching s3:// resources. Tests may replace
	// it with a mock.
	S3Client = func() (s3iface.S3API, error) {
		sess, err := session.NewSessionWithOptions(session.Options{SharedConfigState: session.SharedConfigEnable})
		if err != nil {
			return nil, err
		}
		return s3.New(sess), nil
	}
)

// A Resource wraps a streamable local file or a remote object. Callers must
// Close it once they are done reading.
type Resource struct {
	io.ReadCloser
	url *url.URL
}

// Get the full path or URL of this resource.
func (r *Resource) Path() string {
	return r.url.String()
}

// Get the base name of the resource. For remote resources this is the last
// element of the URL path.
func (r *Resource) Name() string {
	if r.IsRemote() {
		return path.Base(r.url.Path)
	}
	return filepath.Base(r.url.Path)
}

// Returns true if the resource is streamed over http/https or from s3.
func (r *Resource) IsRemote() bool {
	return r.url.Scheme != ""
}

// Open a resource stream. If relTo is specified and pathToResource does not
// define a scheme, the path is resolved against the directory of relTo.
//
// Supported schemes: local paths (no scheme), http, https and s3
// (s3://bucket/key).
func NewResource(pathToResource string, relTo *Resource) (*Resource, error) {
	resURL, err := url.Parse(strings.ReplaceAll(pathToResource, `\`, `/`))
	if err != nil {
		return nil, fmt.Errorf("resource: could not parse '%s': %w", pathToResource, err)
	}

	if resURL.Scheme == "" && relTo != nil {
		resURL, err = resolveRelative(resURL.Path, relTo)
		if err != nil {
			return nil, err
		}
	}

	var reader io.ReadCloser
	switch resURL.Scheme {
	case "":
		reader, err = os.Open(filepath.Clean(resURL.Path))
		if err != nil {
			return nil, fmt.Errorf("resource: could not open '%s': %w", resURL.Path, err)
		}
	case "http", "https":
		resp, err := HTTPClient.Get(resURL.String())
		if err != nil {
			return nil, fmt.Errorf("resource: could not fetch '%s': %w", resURL.String(), err)
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("resource: could not fetch '%s': status %d", resURL.String(), resp.StatusCode)
		}
		reader = resp.Body
	case "s3":
		reader, err = openS3Object(resURL)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w '%s'", ErrUnsupportedScheme, resURL.Scheme)
	}

	return &Resource{
		ReadCloser: reader,
		url:        resURL,
	}, nil
}

// Wrap an in-memory stream as a named resource.
func NewResourceFromStream(name string, source io.Reader) *Resource {
	resURL, err := url.Parse(name)
	if err != nil {
		resURL = &url.URL{Path: name}
	}
	return &Resource{
		ReadCloser: io.NopCloser(source),
		url:        resURL,
	}
}

func resolveRelative(relPath string, relTo *Resource) (*url.URL, error) {
	parent := *relTo.url
	if parent.Scheme != "" {
		parent.Path = path.Join(path.Dir(parent.Path), relPath)
		return &parent, nil
	}

	absParent, err := filepath.Abs(parent.Path)
	if err != nil {
		return nil, fmt.Errorf("resource: could not detect abs path for %s: %w", parent.Path, err)
	}
	return &url.URL{Path: filepath.Join(filepath.Dir(absParent), relPath)}, nil
}

func openS3Object(resURL *url.URL) (io.ReadCloser, error) {
	client, err := S3Client()
	if err != nil {
		return nil, fmt.Errorf("resource: could not create s3 client: %w", err)
	}

	out, err := client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(resURL.Host),
		Key:    aws.String(strings.TrimPrefix(resURL.Path, "/")),
	})
	if err != nil {
		return nil, fmt.Errorf("resource: could not fetch '%s': %w", resURL.String(), err)
	}
	return out.Body, nil
}
