// This file is part of gpx-tracker (https://github.com/spezifisch/gpx-tracker).
// Copyright (C) 2021-2022 spezifisch <spezifisch-7e6@below.fr> (https://github.com/spezifisch).
//
// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the
// Free Software Foundation, version 3 of the License.
//
// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or FITNESS
// FOR A PARTICULAR PURPOSE. See the GNU Affero General Public License for more
// details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.


package upload

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

// DefaultTimeout bounds a single upload.
const DefaultTimeout = 30 * time.Second

// ErrEmptyDocument is returned by Upload for an empty document.
var ErrEmptyDocument = errors.New("upload: empty document")

// Client posts track logs to a Server.
type Client struct {
	url     string
	timeout time.Duration
	client  *fasthttp.Client
}

// NewClient returns a Client posting to url.
func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url:     url,
		timeout: timeout,
		client: &fasthttp.Client{
			Name: "gpx-tracker",
		},
	}
}

// Upload sends doc base64 encoded in the form field "content" and returns
// the link under which the server keeps it.
func (c *Client) Upload(doc []byte) (string, error) {
	if len(doc) == 0 {
		return "", ErrEmptyDocument
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)

	args.Set("content", base64.StdEncoding.EncodeToString(doc))

	req.SetRequestURI(c.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/x-www-form-urlencoded")
	req.SetBody(args.QueryString())

	if err := c.client.DoTimeout(req, resp, c.timeout); err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return "", fmt.Errorf("upload: server answered %d: %s", code, strings.TrimSpace(string(resp.Body())))
	}

	link := strings.TrimSpace(string(resp.Body()))
	if link == "" {
		return "", errors.New("upload: server returned no link")
	}

	log.WithFields(log.Fields{
		"size": len(doc),
		"url":  link,
	}).Info("uploaded track log")
	return link, nil
}
