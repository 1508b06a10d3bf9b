package clipfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/clipfetch/clipfetch/httpx"
)

// Download is the byte-streaming sink a ResolvedSource writes into. It tracks
// expected vs. downloaded bytes and reports them through an optional progress
// callback.
type Download interface {
	// AddDownloadedBytes increases how many bytes have been successfully downloaded so far.
	AddDownloadedBytes(n int)

	// AddExpectedBytes increases how many bytes are expected to be downloaded.
	AddExpectedBytes(n int)

	// Cancel the Download, stopping any in-progress I/O activity.
	Cancel()

	// Close cleans up any resources associated with the Download.
	Close() error

	// Context is the cancellable context of this Download.
	Context() context.Context

	CreateFile(filename string) (io.WriteCloser, error)

	// Progress returns the downloaded and expected bytes of the download.
	Progress() (int, int)

	// SaveHTTPRequest will execute the http.Request with Context() and then download the resulting stream like SaveStream.
	SaveHTTPRequest(filename string, req *http.Request) error

	// SaveStream will download the stream to the named file, calling AddDownloadedBytes as necessary.
	SaveStream(filename string, stream io.Reader) error

	// SaveURL will make a GET request to the URL and then download the resulting stream like SaveStream.
	SaveURL(filename string, url string) error

	// Write will ignore the data but will send the byte count to AddDownloadedBytes. Allows progress tracking using
	// io.MultiWriter (but ensure the Download is the last writer to avoid counting failed writes).
	Write(p []byte) (n int, err error)
}

type download struct {
	ctx              context.Context
	cancel           context.CancelFunc
	client           *httpx.Client
	progressCallback func(int, int)
	targetPrefix     string
	expectedBytes    int
	downloadedBytes  int
}

func (d *download) AddDownloadedBytes(n int) {
	d.downloadedBytes += n
	if d.progressCallback != nil {
		d.progressCallback(d.Progress())
	}
}

func (d *download) AddExpectedBytes(n int) {
	d.expectedBytes += n
	if d.progressCallback != nil {
		d.progressCallback(d.Progress())
	}
}

func (d *download) Cancel() {
	d.cancel()
}

func (d *download) Close() error {
	return nil
}

func (d *download) Context() context.Context {
	return d.ctx
}

func (d *download) CreateFile(filename string) (io.WriteCloser, error) {
	targetPath := d.targetPath(filename)
	targetDir := path.Dir(targetPath)
	if err := os.MkdirAll(targetDir, 0775); err != nil {
		return nil, err
	}
	return os.Create(targetPath)
}

func (d *download) Progress() (int, int) {
	return d.downloadedBytes, d.expectedBytes
}

func (d *download) SaveHTTPRequest(filename string, req *http.Request) error {
	if req == nil {
		return fmt.Errorf("nil request")
	}
	req = req.WithContext(d.Context())
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()
	d.AddExpectedBytes(int(resp.ContentLength))
	return d.SaveStream(filename, resp.Body)
}

func (d *download) SaveStream(filename string, stream io.Reader) error {
	f, err := d.CreateFile(filename)
	if err != nil {
		return fmt.Errorf("failed to open target file: %w", err)
	}
	defer f.Close()

	_, err = io.Copy(io.MultiWriter(f, d), stream)
	if err != nil {
		return fmt.Errorf("failed to save stream: %w", err)
	}
	return nil
}

func (d *download) SaveURL(filename string, url string) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return d.SaveHTTPRequest(filename, req)
}

func (d *download) Write(p []byte) (n int, err error) {
	n = len(p)
	d.AddDownloadedBytes(n)
	return n, nil
}

func (d *download) targetPath(filename string) string {
	// TODO: sanitise filename
	targetPathBuilder := strings.Builder{}
	targetPathBuilder.WriteString(d.targetPrefix)
	targetPathBuilder.WriteString(filename)
	return targetPathBuilder.String()
}

type DownloadBuilder interface {
	Build() (Download, error)
	WithClient(client *httpx.Client) DownloadBuilder
	WithContext(ctx context.Context) DownloadBuilder
	WithProgressCallback(f func(downloaded int, expected int)) DownloadBuilder
	WithTargetPrefix(prefix string) DownloadBuilder
}

type downloadBuilder struct {
	ctx              context.Context
	client           *httpx.Client
	progressCallback func(int, int)
	targetPrefix     string
}

func NewDownloadBuilder() DownloadBuilder {
	return &downloadBuilder{
		ctx:          context.Background(),
		targetPrefix: "./",
	}
}

func (b *downloadBuilder) Build() (Download, error) {
	d := download{}
	d.ctx, d.cancel = context.WithCancel(b.ctx)
	d.client = b.client
	if d.client == nil {
		d.client = httpx.New()
	}
	d.progressCallback = b.progressCallback
	d.targetPrefix = b.targetPrefix
	return &d, nil
}

func (b *downloadBuilder) WithClient(client *httpx.Client) DownloadBuilder {
	b.client = client
	return b
}

func (b *downloadBuilder) WithContext(ctx context.Context) DownloadBuilder {
	b.ctx = ctx
	return b
}

func (b *downloadBuilder) WithProgressCallback(f func(int, int)) DownloadBuilder {
	b.progressCallback = f
	return b
}

func (b *downloadBuilder) WithTargetPrefix(prefix string) DownloadBuilder {
	b.targetPrefix = prefix
	return b
}
