package rod

import (
	"context"
	"strings"
	"sync"

	"github.com/go-rod/rod/lib/proto"

	"github.com/fwojciec/grabfile"
)

// Watch channel capacities. Events beyond capacity are dropped.
const (
	downloadBuffer = 8
	popupBuffer    = 8
	responseBuffer = 256
)

// Watch arms listeners for native downloads in the browser context, popups
// opened by this page, and network responses received by this page.
func (p *Page) Watch(ctx context.Context) (*grabfile.Watch, error) {
	if err := (proto.NetworkEnable{}).Call(p.page); err != nil {
		return nil, err
	}

	wctx, cancel := context.WithCancel(ctx)
	downloads := make(chan grabfile.Download, downloadBuffer)
	popups := make(chan grabfile.Page, popupBuffer)
	responses := make(chan grabfile.Response, responseBuffer)
	opened := make(chan proto.TargetTargetID, popupBuffer)

	// Download progress arrives on the same subscription as the start
	// event, so the map needs no lock.
	started := make(map[string]*download)
	browserEvents := p.browser.Context(wctx).EachEvent(
		func(e *proto.BrowserDownloadWillBegin) {
			d := newDownload(e.GUID, e.URL, e.SuggestedFilename, p.stageDir)
			started[e.GUID] = d
			offer(downloads, grabfile.Download(d))
		},
		func(e *proto.BrowserDownloadProgress) {
			if d, ok := started[e.GUID]; ok {
				d.progress(e.State)
			}
		},
		func(e *proto.TargetTargetCreated) {
			if e.TargetInfo.Type == proto.TargetTargetInfoTypePage && e.TargetInfo.OpenerID == p.page.TargetID {
				offer(opened, e.TargetInfo.TargetID)
			}
		},
	)
	pageEvents := p.page.Context(wctx).EachEvent(func(e *proto.NetworkResponseReceived) {
		offer(responses, responseFromEvent(e))
	})

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); browserEvents() }()
	go func() { defer wg.Done(); pageEvents() }()
	go func() {
		defer wg.Done()
		// Attaching to a target issues CDP calls, which must not happen
		// inside an event callback.
		for {
			select {
			case <-wctx.Done():
				return
			case id := <-opened:
				page, err := p.browser.PageFromTarget(id)
				if err != nil {
					continue
				}
				offer(popups, grabfile.Page(newPage(page, p.browser, p.stageDir)))
			}
		}
	}()

	var once sync.Once
	return &grabfile.Watch{
		Downloads: downloads,
		Popups:    popups,
		Responses: responses,
		Stop: func() {
			once.Do(func() {
				cancel()
				wg.Wait()
			})
		},
	}, nil
}

// offer sends v without blocking the event loop.
func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}

func responseFromEvent(e *proto.NetworkResponseReceived) grabfile.Response {
	r := grabfile.Response{
		URL:         e.Response.URL,
		Status:      e.Response.Status,
		ContentType: e.Response.MIMEType,
	}
	for k, v := range e.Response.Headers {
		switch strings.ToLower(k) {
		case "content-type":
			r.ContentType = v.Str()
		case "content-disposition":
			r.ContentDisposition = v.Str()
		}
	}
	return r
}
