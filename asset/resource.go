package asset

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// A Resource wraps a streamable local file or a remote http(s) document.
// Scene files use resources to reference other scene files relative to
// their own location.
type Resource struct {
	io.ReadCloser
	url *url.URL
}

// Returns the path to this resource.
func (r *Resource) Path() string {
	return r.url.String()
}

// Returns true if the Resource is streamed over http/https.
func (r *Resource) IsRemote() bool {
	return r.url.Scheme == "http" || r.url.Scheme == "https"
}

// Create a new Resource data stream. If relTo is specified and pathToResource
// does not define a scheme, then the new resource path is resolved against
// the directory of relTo.
//
// The caller must close the returned Resource.
func NewResource(pathToResource string, relTo *Resource) (*Resource, error) {
	resURL, err := resolveURL(pathToResource, relTo)
	if err != nil {
		return nil, err
	}

	reader, err := open(resURL)
	if err != nil {
		return nil, err
	}

	return &Resource{
		ReadCloser: reader,
		url:        resURL,
	}, nil
}

// Create a resource from a reader.
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

func resolveURL(pathToResource string, relTo *Resource) (*url.URL, error) {
	// Windows-style paths are treated as slash-separated.
	resURL, err := url.Parse(strings.Replace(pathToResource, `\`, `/`, -1))
	if err != nil {
		return nil, fmt.Errorf("resource: could not parse %q: %v", pathToResource, err)
	}

	if resURL.Scheme != "" || relTo == nil || filepath.IsAbs(resURL.Path) {
		return resURL, nil
	}

	relPath := resURL.Path
	resURL = &url.URL{}
	*resURL = *relTo.url
	resURL.RawPath = ""
	if relTo.IsRemote() {
		resURL.Path = filepath.ToSlash(filepath.Join(filepath.Dir(relTo.url.Path), relPath))
		return resURL, nil
	}

	basePath, err := filepath.Abs(relTo.url.Path)
	if err != nil {
		return nil, fmt.Errorf("resource: could not detect abs path for %s: %v", relTo.Path(), err)
	}
	resURL.Path = filepath.Join(filepath.Dir(basePath), relPath)
	return resURL, nil
}

func open(resURL *url.URL) (io.ReadCloser, error) {
	switch resURL.Scheme {
	case "", "file":
		return os.Open(filepath.Clean(resURL.Path))
	case "http", "https":
		resp, err := http.Get(resURL.String())
		if err != nil {
			return nil, fmt.Errorf("resource: could not fetch '%s': %s", resURL.String(), err)
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("resource: could not fetch '%s': status %d", resURL.String(), resp.StatusCode)
		}
		return resp.Body, nil
	}

	return nil, fmt.Errorf("resource: unsupported scheme '%s'", resURL.Scheme)
}
