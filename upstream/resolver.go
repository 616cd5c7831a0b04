package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/treemana/godoh/log"
	"github.com/treemana/godoh/util"
)

// Fetch posts query to the remote endpoint as is. The returned payload has
// the resolver's transaction ID stripped so it can be spliced onto any
// requester's ID.
func (d *DoH) Fetch(ctx context.Context, query []byte) ([]byte, error) {

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, d.remote.String(), query)
	if err != nil {
		return nil, fmt.Errorf("new request error=[%w]", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentType)

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s error=[%w]", d.remote.Host, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	}

	var body []byte
	if body, err = io.ReadAll(io.LimitReader(resp.Body, util.MaxMsgLen+1)); err != nil {
		return nil, fmt.Errorf("read %s body error=[%w]", d.remote.Host, err)
	}

	if len(body) > util.MaxMsgLen {
		return nil, ErrOversize
	}

	if len(body) < util.IDLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortResponse, len(body))
	}

	log.Sugar.Debugf("%s response %d bytes, cost %s", d.remote.Host, len(body), time.Since(start))

	return body[util.IDLen:], nil
}
