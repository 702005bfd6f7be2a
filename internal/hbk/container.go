// Package hbk is the container facade (C4): it opens a .hbk file, locates
// the file-storage entity described by its table of contents, and streams
// out the HTML pages packed inside it as an in-memory ZIP archive.
package hbk

import (
	"context"
	"encoding/binary"
	"os"
	"strings"

	"github.com/hawkxtreme/mini-ai-1c-help/internal/container"
	"github.com/hawkxtreme/mini-ai-1c-help/internal/statusline"
	"github.com/hawkxtreme/mini-ai-1c-help/internal/ziparchive"
)

// zipSignature is the local-file-header signature a well-formed
// file-storage entity must begin with.
const zipSignature = 0x04034b50

// estimateDivisor is the rough average on-disk bytes per page used by
// EstimatePageCount; a heuristic, not an exact figure (see §9).
const estimateDivisor = 740

// Page is one extracted HTML document, named after its path inside the
// file-storage ZIP.
type Page struct {
	Name string
	HTML string
}

// PageResult is either a Page or an error describing why it could not be
// produced; per-page errors never stop the stream, only container-level
// failures do (at most one error result is sent, then the channel closes).
type PageResult struct {
	Page Page
	Err  error
}

// Container is a readable, seekable view over one .hbk file plus its
// parsed table of contents. Its lifetime is bounded by one indexing run.
type Container struct {
	path string
	buf  []byte
	toc  []container.TOCEntry
}

// Open reads path whole and parses its table of contents.
func Open(path string) (*Container, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	toc, err := container.ParseTOC(buf)
	if err != nil {
		return nil, err
	}
	return &Container{path: path, buf: buf, toc: toc}, nil
}

// EstimatePageCount returns a rough upper bound on the page count, for
// progress display only. It never raises on a malformed container: any
// failure to locate or read the file-storage entity yields 0.
func (c *Container) EstimatePageCount() int {
	addr, ok := c.locateFileStorage()
	if !ok {
		return 0
	}
	body, err := container.ReadEntityFull(c.buf, int64(addr))
	if err != nil {
		return 0
	}
	return len(body) / estimateDivisor
}

// locateFileStorage implements §4.4 step 1-3: scan the TOC for an entity
// whose name lowercase-matches "filestorage"; failing that, fall back to
// the second TOC entry; failing that, report no match.
func (c *Container) locateFileStorage() (int32, bool) {
	for _, entry := range c.toc {
		name, err := container.EntityName(c.buf, int64(entry.HeaderAddr))
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(name), "filestorage") {
			return entry.BodyAddr, true
		}
	}
	if len(c.toc) >= 2 {
		return c.toc[1].BodyAddr, true
	}
	return 0, false
}

// cooperativeYieldInterval is how often (in yielded pages) the producer
// goroutine makes an extra non-blocking check of ctx for cancellation.
const cooperativeYieldInterval = 100

// Pages streams pages out of the file-storage entity on an unbuffered
// channel from a producer goroutine, closing it when done. Each send blocks
// until the page is received or ctx is done, and every 100 pages the
// producer also checks ctx and stops if it is cancelled; status is the
// side-channel used to report a malformed file-storage signature.
func (c *Container) Pages(ctx context.Context, status *statusline.Writer) <-chan PageResult {
	out := make(chan PageResult)

	go func() {
		defer close(out)

		addr, ok := c.locateFileStorage()
		if !ok {
			return
		}

		body, err := container.ReadEntityFull(c.buf, int64(addr))
		if err != nil {
			select {
			case out <- PageResult{Err: err}:
			case <-ctx.Done():
			}
			return
		}

		if len(body) < 4 || binary.LittleEndian.Uint32(body[:4]) != zipSignature {
			if status != nil {
				status.Logf("file-storage entity in %s is not a ZIP archive", c.path)
			}
			return
		}

		n := 0
		_ = ziparchive.Iterate(body, func(e ziparchive.Entry) bool {
			if !strings.HasSuffix(strings.ToLower(e.Name), ".html") {
				return true
			}

			data, derr := ziparchive.Decompress(e)
			if derr == ziparchive.ErrUnsupportedMethod {
				return true // unsupported member, skip silently
			}

			var result PageResult
			if derr != nil {
				result = PageResult{Err: derr}
			} else {
				result = PageResult{Page: Page{Name: e.Name, HTML: string(data)}}
			}

			select {
			case out <- result:
			case <-ctx.Done():
				return false
			}

			n++
			if n%cooperativeYieldInterval == 0 {
				select {
				case <-ctx.Done():
					return false
				default:
				}
			}
			return true
		})
	}()

	return out
}
